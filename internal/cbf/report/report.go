// Package report renders repository statistics as aligned text.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/haukened/cbf/internal/cbf/repos/membership"
)

// Write prints st to w, one "label:<tab>value" line per metric.
func Write(w io.Writer, st membership.RepoStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)

	lines := []struct {
		label string
		value any
	}{
		{"Number of items", st.Filter.Size},
		{"Number of slots", st.Filter.Slots},
		{"Number of hash fns", st.Filter.Hashes},
		{"Probability of false positives", fmt.Sprintf("%.6f", st.Filter.FPRate)},
		{"Capacity at target rate", st.Filter.Capacity},
		{"Probability at capacity", fmt.Sprintf("%.6f", st.Filter.DesignFPRate)},
		{"Saturated slots", st.Filter.Saturated},
		{"Filter negatives", st.FilterHits},
		{"Last rebuild", unixOrNever(st.LastRebuild)},
		{"Stored items", st.Store.Items},
		{"Store version", st.Store.Version},
		{"Store updated", unixOrNever(st.Store.UpdatedUnix)},
		{"Cache", fmt.Sprintf("%d/%d hits=%d misses=%d evictions=%d",
			st.Cache.Size, st.Cache.Capacity, st.Cache.Hits, st.Cache.Misses, st.Cache.Evictions)},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(tw, "%s:\t%v\n", l.label, l.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func unixOrNever(sec int64) string {
	if sec == 0 {
		return "never"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
