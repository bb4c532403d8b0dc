package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/ciricc/kernelbench/internal/app"
	"github.com/ciricc/kernelbench/pkg/benchreport"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "show <report.json|dir>",
		Short: "Print a saved report, optionally grouped by suite or benchmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadReports(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, l := range loaded {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s  run=%s  %s\n", l.Path, l.Report.RunID, l.Report.TimestampRFC3339)
				if err := show(w, l.Report, by); err != nil {
					return fmt.Errorf("%s: %w", l.Path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "group output by suite|benchmark (default: full table)")
	return cmd
}

func loadReports(errw io.Writer, path string) ([]benchreport.Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		r, err := benchreport.Load(path)
		if err != nil {
			return nil, err
		}
		return []benchreport.Loaded{{Path: path, Report: r}}, nil
	}
	loaded, skipped, err := benchreport.LoadDir(path)
	if err != nil {
		return nil, err
	}
	for _, sk := range skipped {
		fmt.Fprintf(errw, "skipped %s: %v\n", sk.Path, sk.Err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no reports found in %s", path)
	}
	return loaded, nil
}

func show(w io.Writer, r *benchreport.Report, by string) error {
	switch by {
	case "":
		return benchreport.PrintTable(w, r)
	case "suite", "benchmark":
	default:
		return fmt.Errorf("unknown grouping %q", by)
	}

	t, err := app.TableFromReport(r)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if by == "suite" {
		for _, s := range t.Suites {
			totals := t.BySuite(s)
			fmt.Fprintf(tw, "%s vs %s\n", s, t.Baseline)
			for _, b := range sortedKeys(totals) {
				fmt.Fprintf(tw, "  %s\t%.3f\n", b, totals[b])
			}
		}
		return tw.Flush()
	}
	for _, b := range t.Benchmarks() {
		kernels := t.ByBenchmark(b)
		fmt.Fprintf(tw, "%s\n", b)
		for _, k := range sortedKeys(kernels) {
			fmt.Fprintf(tw, "  %s", k)
			for _, s := range t.Suites {
				fmt.Fprintf(tw, "\t%s=%.3f", s, kernels[k][s])
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
