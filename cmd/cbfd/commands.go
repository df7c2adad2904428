package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haukened/cbf/internal/cbf/common/log"
	"github.com/haukened/cbf/internal/cbf/config"
	"github.com/haukened/cbf/internal/cbf/repos/membership/parsers"
	"github.com/haukened/cbf/internal/cbf/report"
)

// errQuit ends a shell session.
var errQuit = errors.New("quit")

// newRootCmd builds the cbfd command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Counting Bloom filter membership service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "add ITEM...",
			Short: "Insert items, incrementing their counts",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(app *application, cmd *cobra.Command, args []string) error {
				return forEach(args, func(item string) error { return app.add(cmd.OutOrStdout(), item) })
			}),
		},
		&cobra.Command{
			Use:   "remove ITEM...",
			Short: "Remove one occurrence of each item",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(app *application, cmd *cobra.Command, args []string) error {
				return forEach(args, func(item string) error { return app.remove(cmd.OutOrStdout(), item) })
			}),
		},
		&cobra.Command{
			Use:   "contains ITEM...",
			Short: "Report whether items are present",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(app *application, cmd *cobra.Command, args []string) error {
				return forEach(args, func(item string) error { return app.contains(cmd.OutOrStdout(), item) })
			}),
		},
		&cobra.Command{
			Use:   "import FILE...",
			Short: "Add every item listed in FILE (\"-\" reads stdin)",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(func(app *application, cmd *cobra.Command, args []string) error {
				return forEach(args, func(path string) error {
					return app.importFile(cmd.InOrStdin(), cmd.OutOrStdout(), path)
				})
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print filter, cache and store statistics",
			Args:  cobra.NoArgs,
			RunE: withApp(func(app *application, cmd *cobra.Command, _ []string) error {
				return report.Write(cmd.OutOrStdout(), app.repo.Stats())
			}),
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove every item",
			Args:  cobra.NoArgs,
			RunE: withApp(func(app *application, cmd *cobra.Command, _ []string) error {
				return app.exec(cmd.OutOrStdout(), "reset", nil)
			}),
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Read commands from stdin, one per line",
			Long: "Reads lines of the form \"add ITEM\", \"remove ITEM\", \"contains ITEM\",\n" +
				"\"stats\", \"reset\" or \"quit\" and answers each on stdout.",
			Args: cobra.NoArgs,
			RunE: withApp(func(app *application, cmd *cobra.Command, _ []string) error {
				return app.shell(cmd.InOrStdin(), cmd.OutOrStdout())
			}),
		},
	)
	return root
}

// withApp loads the configuration, builds the application for one command
// and closes it afterwards.
func withApp(run func(app *application, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
			return fmt.Errorf("logging configuration error: %w", err)
		}
		log.Debug(map[string]any{
			"version":      version,
			"command":      cmd.Name(),
			"env":          cfg.Env,
			"db":           cfg.DB,
			"capacity":     cfg.Capacity,
			"fp_rate":      cfg.FPRate,
			"counter_bits": cfg.CounterBits,
			"hasher":       cfg.Hasher,
			"stripes":      cfg.Stripes,
			"cache_size":   cfg.CacheSize,
		}, "Starting cbfd")

		app, err := buildApplication(cfg)
		if err != nil {
			return err
		}
		err = run(app, cmd, args)
		if cerr := app.Close(); err == nil {
			err = cerr
		}
		return err
	}
}

func forEach(items []string, fn func(string) error) error {
	for _, item := range items {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

func (app *application) add(w io.Writer, item string) error {
	n, err := app.repo.Add([]byte(item))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\tcount=%d\n", item, n)
	return err
}

// importFile adds each item listed in path, one line per item.
func (app *application) importFile(stdin io.Reader, w io.Writer, path string) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	items, err := parsers.ParseItemList(r, path, log.Component("import"))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, item := range items {
		if _, err := app.repo.Add(item); err != nil {
			return err
		}
	}
	log.Info(map[string]any{"source": path, "items": len(items)}, "Import complete")
	_, err = fmt.Fprintf(w, "%s\timported=%d\n", path, len(items))
	return err
}

func (app *application) remove(w io.Writer, item string) error {
	left, removed, err := app.repo.Remove([]byte(item))
	if err != nil {
		return err
	}
	if !removed {
		_, err = fmt.Fprintf(w, "%s\tabsent\n", item)
		return err
	}
	_, err = fmt.Fprintf(w, "%s\tcount=%d\n", item, left)
	return err
}

func (app *application) contains(w io.Writer, item string) error {
	d := app.repo.Contains([]byte(item))
	state := "absent"
	if d.IsPresent() {
		state = "present"
	}
	_, err := fmt.Fprintf(w, "%s\t%s\tcount=%d\tsource=%s\n", item, state, d.Count, d.Source)
	return err
}

// shell runs line commands from r until EOF or "quit". Bad lines are
// reported and skipped.
func (app *application) shell(r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		err := app.exec(w, fields[0], fields[1:])
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			if _, werr := fmt.Fprintf(w, "error: %v\n", err); werr != nil {
				return werr
			}
		}
	}
	return sc.Err()
}

func (app *application) exec(w io.Writer, verb string, args []string) error {
	switch verb {
	case "add", "remove", "contains":
		if len(args) != 1 {
			return fmt.Errorf("%s takes exactly one item", verb)
		}
	}
	switch verb {
	case "add":
		return app.add(w, args[0])
	case "remove":
		return app.remove(w, args[0])
	case "contains":
		return app.contains(w, args[0])
	case "stats":
		return report.Write(w, app.repo.Stats())
	case "reset":
		if err := app.repo.Reset(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "reset")
		return err
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
}
