package parsers

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/cbf/internal/cbf/common/log"
)

// ParseItemList parses a newline-delimited list of items.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Trims surrounding whitespace and a leading BOM
// - Skips empty lines after trimming/stripping comments
// - Keeps duplicates: an item listed twice is inserted twice
func ParseItemList(r io.Reader, source string, logger logpkg.Logger) ([][]byte, error) {
	scanner := bufio.NewScanner(r)
	out := make([][]byte, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_item_list_start")
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		item := strings.TrimSpace(line)
		if item == "" {
			logger.Debug(map[string]any{"line": lineNum}, "skip_empty")
			continue
		}
		out = append(out, []byte(item))
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_item_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_item_list_done")
	return out, nil
}
