package benchreport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
)

// WriteCSV writes one line per row: benchmark, kernel, then one ratio per
// compared suite in report column order.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	header := append([]string{"benchmark", "kernel"}, r.Suites...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range r.Rows {
		rec := []string{row.Benchmark, row.Kernel}
		for _, s := range r.Suites {
			rec = append(rec, strconv.FormatFloat(float64(row.Ratios[s]), 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteCSVFile(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// PrintTable renders the ratio table and the per-suite totals.
func PrintTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "BENCHMARK\tKERNEL")
	for _, s := range r.Suites {
		fmt.Fprintf(tw, "\t%s", s)
	}
	fmt.Fprintln(tw)
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%s", row.Benchmark, row.Kernel)
		for _, s := range r.Suites {
			fmt.Fprintf(tw, "\t%.3f", float64(row.Ratios[s]))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Totals) > 0 {
		fmt.Fprintf(w, "\nvs %s:\n", r.Params.Baseline)
		for _, t := range r.Totals {
			fmt.Fprintf(w, "  %s: %.3fx\n", t.Suite, float64(t.Ratio))
		}
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\n%d row(s) skipped for incomplete coverage\n", len(r.Skipped))
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "\n%d pair(s) failed:\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}
