package compare

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

// Row identifies one line of the comparison table.
type Row struct {
	Benchmark string
	Kernel    string
}

// SuiteTotal is the headline number of a suite: the mean of its per-benchmark
// "total" ratios.
type SuiteTotal struct {
	Suite string
	Ratio float64
}

// Table holds, for every row, the ratio of each non-baseline suite against
// the baseline. Ratios[suite][i] belongs to Rows[i].
type Table struct {
	Baseline string
	Suites   []string
	Rows     []Row
	Ratios   map[string][]float64
	// Skipped lists rows dropped because a suite had no samples for them.
	Skipped []Row
}

var ErrTableShape = errors.New("comparison table shape mismatch")

// NewTable checks that there is exactly one ratio series per suite and that
// every series covers every row.
func NewTable(baseline string, suites []string, rows []Row, ratios map[string][]float64) (*Table, error) {
	if lo.Contains(suites, baseline) {
		return nil, fmt.Errorf("%w: baseline %q listed as compared suite", ErrTableShape, baseline)
	}
	if len(lo.Uniq(suites)) != len(suites) {
		return nil, fmt.Errorf("%w: duplicate suites %v", ErrTableShape, suites)
	}
	if len(ratios) != len(suites) {
		return nil, fmt.Errorf("%w: %d ratio series for %d suites", ErrTableShape, len(ratios), len(suites))
	}
	for _, s := range suites {
		series, ok := ratios[s]
		if !ok {
			return nil, fmt.Errorf("%w: no ratios for suite %q", ErrTableShape, s)
		}
		if len(series) != len(rows) {
			return nil, fmt.Errorf("%w: suite %q has %d ratios for %d rows", ErrTableShape, s, len(series), len(rows))
		}
	}
	return &Table{
		Baseline: baseline,
		Suites:   suites,
		Rows:     rows,
		Ratios:   ratios,
	}, nil
}

// Ratio returns the ratio of suite for row i.
func (t *Table) Ratio(suite string, i int) (float64, bool) {
	series, ok := t.Ratios[suite]
	if !ok || i < 0 || i >= len(series) {
		return 0, false
	}
	return series[i], true
}

// BySuite maps each benchmark to the suite's "total" ratio. The summary row
// appears under the benchmark "total".
func (t *Table) BySuite(suite string) map[string]float64 {
	out := map[string]float64{}
	series, ok := t.Ratios[suite]
	if !ok {
		return out
	}
	for i, r := range t.Rows {
		if r.Kernel == TotalKernel {
			out[r.Benchmark] = series[i]
		}
	}
	return out
}

// ByBenchmark maps kernel -> suite -> ratio for one benchmark.
func (t *Table) ByBenchmark(benchmark string) map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	for i, r := range t.Rows {
		if r.Benchmark != benchmark {
			continue
		}
		perSuite := make(map[string]float64, len(t.Suites))
		for _, s := range t.Suites {
			perSuite[s] = t.Ratios[s][i]
		}
		out[r.Kernel] = perSuite
	}
	return out
}

// SuiteTotals reads the final ("total", "total") row.
func (t *Table) SuiteTotals() []SuiteTotal {
	idx := lo.IndexOf(t.Rows, Row{Benchmark: TotalKernel, Kernel: TotalKernel})
	if idx < 0 {
		return nil
	}
	return lo.Map(t.Suites, func(s string, _ int) SuiteTotal {
		return SuiteTotal{Suite: s, Ratio: t.Ratios[s][idx]}
	})
}

// Benchmarks returns the benchmarks that made it into the table, in row
// order, excluding the summary row.
func (t *Table) Benchmarks() []string {
	names := lo.Map(t.Rows, func(r Row, _ int) string { return r.Benchmark })
	return lo.Without(lo.Uniq(names), TotalKernel)
}
