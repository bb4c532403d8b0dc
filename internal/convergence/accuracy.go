package convergence

import (
	"math"
	"sort"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// KernelStat describes the spread of one kernel's accumulated durations.
type KernelStat struct {
	Kernel     string
	Iterations int
	Min        float64
	StdDev     float64
	// Uncertainty is StdDev relative to Min.
	Uncertainty float64
}

// KernelStats groups samples by kernel, sorted by kernel name.
func KernelStats(samples []sample.Sample) []KernelStat {
	groups := lo.GroupBy(samples, func(s sample.Sample) string { return s.Kernel })

	out := make([]KernelStat, 0, len(groups))
	for kernel, group := range groups {
		times := sample.Durations(group)
		ks := KernelStat{
			Kernel:     kernel,
			Iterations: len(times),
			Min:        floats.Min(times),
		}
		if len(times) > 1 {
			ks.StdDev = stat.StdDev(times, nil)
		}
		switch {
		case ks.StdDev == 0:
			ks.Uncertainty = 0
		case ks.Min == 0:
			ks.Uncertainty = math.Inf(1)
		default:
			ks.Uncertainty = ks.StdDev / ks.Min
		}
		out = append(out, ks)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kernel < out[j].Kernel })
	return out
}

// IsAccurate holds when every kernel has at least minIterations samples and
// a relative uncertainty strictly below maxUncertainty. A single noisy or
// under-sampled kernel blocks the whole benchmark.
func IsAccurate(samples []sample.Sample, minIterations int, maxUncertainty float64) (bool, []KernelStat) {
	stats := KernelStats(samples)
	if len(stats) == 0 {
		return false, stats
	}
	ok := lo.EveryBy(stats, func(ks KernelStat) bool {
		return ks.Iterations >= minIterations && ks.Uncertainty < maxUncertainty
	})
	return ok, stats
}
