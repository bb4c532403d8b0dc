// Package compare aggregates pooled kernel samples into per-benchmark ratios
// against a baseline suite.
package compare

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TotalKernel names the synthetic per-benchmark kernel, and the summary row.
const TotalKernel = "total"

var (
	ErrNoSuites        = errors.New("at least one suite besides the baseline is required")
	ErrUnknownBaseline = errors.New("baseline is not one of the compared suites")
)

type key struct {
	suite     string
	benchmark string
	kernel    string
}

// Compare builds the comparison table. samples is a snapshot of the pooled
// table; samples of suites not listed in suites are ignored.
//
// Per (suite, benchmark) a synthetic "total" kernel is added first: the sum
// of all durations divided by the number of samples. Then every kernel is
// collapsed to its minimum duration, since profiler overhead only inflates
// kernel time. A (benchmark, kernel) row is kept only when every suite has
// data for it. The last row, ("total", "total"), holds each suite's mean
// "total" ratio.
func Compare(samples []sample.Sample, suites []string, baseline string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !lo.Contains(suites, baseline) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrUnknownBaseline, baseline, suites)
	}
	others := lo.Without(lo.Uniq(suites), baseline)
	if len(others) == 0 {
		return nil, ErrNoSuites
	}

	inScope := lo.Filter(samples, func(s sample.Sample, _ int) bool {
		return lo.Contains(suites, s.Suite)
	})

	minima := collapse(append(inScope, totals(inScope)...))

	rows := lo.Uniq(lo.Map(lo.Keys(minima), func(k key, _ int) Row {
		return Row{Benchmark: k.benchmark, Kernel: k.kernel}
	}))
	sortRows(rows)

	var kept, skipped []Row
	ratios := make(map[string][]float64, len(others))
	for _, r := range rows {
		missing := lo.Filter(suites, func(s string, _ int) bool {
			_, ok := minima[key{s, r.Benchmark, r.Kernel}]
			return !ok
		})
		if len(missing) > 0 {
			logger.Warn("incomplete coverage, skipping row",
				"benchmark", r.Benchmark,
				"kernel", r.Kernel,
				"missing_suites", missing,
			)
			skipped = append(skipped, r)
			continue
		}

		base := minima[key{baseline, r.Benchmark, r.Kernel}]
		for _, s := range others {
			ratios[s] = append(ratios[s], minima[key{s, r.Benchmark, r.Kernel}]/base)
		}
		kept = append(kept, r)
	}

	if summary, ok := suiteTotals(kept, ratios, others); ok {
		kept = append(kept, Row{Benchmark: TotalKernel, Kernel: TotalKernel})
		for _, s := range others {
			ratios[s] = append(ratios[s], summary[s])
		}
	} else {
		logger.Warn("no benchmark has totals for every suite, omitting suite totals")
	}

	for _, s := range others {
		if ratios[s] == nil {
			ratios[s] = []float64{}
		}
	}

	t, err := NewTable(baseline, others, kept, ratios)
	if err != nil {
		return nil, err
	}
	t.Skipped = skipped
	return t, nil
}

// totals adds one "total" sample per (suite, benchmark): the summed duration
// divided by the number of samples, so that pairs measured for a different
// number of iterations remain comparable.
func totals(samples []sample.Sample) []sample.Sample {
	groups := lo.GroupBy(samples, func(s sample.Sample) [2]string {
		return [2]string{s.Suite, s.Benchmark}
	})
	out := make([]sample.Sample, 0, len(groups))
	for pair, group := range groups {
		times := sample.Durations(group)
		out = append(out, sample.NewSample(pair[0], pair[1], TotalKernel, floats.Sum(times)/float64(len(times))))
	}
	return out
}

// collapse reduces every (suite, benchmark, kernel) to its minimum duration.
func collapse(samples []sample.Sample) map[key]float64 {
	groups := lo.GroupBy(samples, func(s sample.Sample) key {
		return key{s.Suite, s.Benchmark, s.Kernel}
	})
	return lo.MapValues(groups, func(group []sample.Sample, _ key) float64 {
		return floats.Min(sample.Durations(group))
	})
}

func suiteTotals(rows []Row, ratios map[string][]float64, suites []string) (map[string]float64, bool) {
	idx := make([]int, 0)
	for i, r := range rows {
		if r.Kernel == TotalKernel {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, false
	}
	out := make(map[string]float64, len(suites))
	for _, s := range suites {
		vals := lo.Map(idx, func(i int, _ int) float64 { return ratios[s][i] })
		out[s] = stat.Mean(vals, nil)
	}
	return out, true
}

// sortRows orders rows by benchmark, then kernel, with each benchmark's
// "total" row last.
func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Benchmark != b.Benchmark {
			return a.Benchmark < b.Benchmark
		}
		if (a.Kernel == TotalKernel) != (b.Kernel == TotalKernel) {
			return b.Kernel == TotalKernel
		}
		return a.Kernel < b.Kernel
	})
}
