// Package convergence repeats profiler measurements of a benchmark until the
// kernel timings are stable enough, or a run/time budget is spent.
package convergence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ciricc/kernelbench/internal/cache"
	"github.com/ciricc/kernelbench/internal/model/sample"
)

const (
	DefaultMinKernelIterations  = 10
	DefaultMaxKernelUncertainty = 0.02
	DefaultMaxBenchmarkRuns     = 100
	DefaultMaxBenchmarkDuration = 300 * time.Second
)

type State int

const (
	StateMeasuring State = iota
	// StateCached: samples were loaded from an existing cache file.
	StateCached
	// StateConverged: the accuracy criterion was met.
	StateConverged
	// StateExhausted: the run or time budget ran out first. The samples are
	// still used, just unverified.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateMeasuring:
		return "measuring"
	case StateCached:
		return "cached"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Source produces the samples of one profiler run.
type Source interface {
	Measure(ctx context.Context, suite, benchmark, dir string) ([]sample.Sample, error)
}

type Result struct {
	Suite      string
	Benchmark  string
	State      State
	Iterations int
	Elapsed    time.Duration
	Samples    []sample.Sample
	Stats      []KernelStat
}

type Controller struct {
	source         Source
	logger         *slog.Logger
	minIterations  int
	maxUncertainty float64
	maxRuns        int
	maxDuration    time.Duration
	now            func() time.Time
}

type Option func(c *Controller)

func WithMinKernelIterations(n int) Option {
	return func(c *Controller) { c.minIterations = n }
}

func WithMaxKernelUncertainty(u float64) Option {
	return func(c *Controller) { c.maxUncertainty = u }
}

func WithMaxBenchmarkRuns(n int) Option {
	return func(c *Controller) { c.maxRuns = n }
}

func WithMaxBenchmarkDuration(d time.Duration) Option {
	return func(c *Controller) { c.maxDuration = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock replaces time.Now for the time budget.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(source Source, opts ...Option) *Controller {
	c := &Controller{
		source:         source,
		logger:         slog.Default(),
		minIterations:  DefaultMinKernelIterations,
		maxUncertainty: DefaultMaxKernelUncertainty,
		maxRuns:        DefaultMaxBenchmarkRuns,
		maxDuration:    DefaultMaxBenchmarkDuration,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Gather returns the samples of one (suite, benchmark) pair whose profile
// target lives in dir. An existing cache file is returned as-is; otherwise
// the pair is measured and the result cached. A measurement failure aborts
// the pair without writing the cache.
func (c *Controller) Gather(ctx context.Context, suite, benchmark, dir string) (Result, error) {
	log := c.logger.With("suite", suite, "benchmark", benchmark)
	res := Result{Suite: suite, Benchmark: benchmark}

	cachePath := cache.Path(dir)
	if cache.Exists(cachePath) {
		samples, err := cache.Load(cachePath)
		if err != nil {
			return res, fmt.Errorf("load cache for %s/%s: %w", suite, benchmark, err)
		}
		res.State = StateCached
		res.Samples = samples
		res.Stats = KernelStats(samples)
		log.Info("using cached samples", "path", cachePath, "samples", len(samples))
		return res, nil
	}

	res.State = StateMeasuring
	start := c.now()
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		batch, err := c.source.Measure(ctx, suite, benchmark, dir)
		if err != nil {
			return res, fmt.Errorf("measure %s/%s (iteration %d): %w", suite, benchmark, res.Iterations+1, err)
		}
		res.Samples = append(res.Samples, batch...)
		res.Iterations++
		res.Elapsed = c.now().Sub(start)

		accurate, stats := IsAccurate(res.Samples, c.minIterations, c.maxUncertainty)
		res.Stats = stats
		log.Debug("iteration finished",
			"iteration", res.Iterations,
			"samples", len(batch),
			"elapsed", res.Elapsed,
			"accurate", accurate,
		)

		if accurate {
			res.State = StateConverged
			break
		}
		if res.Iterations >= c.maxRuns || res.Elapsed >= c.maxDuration {
			res.State = StateExhausted
			break
		}
	}

	if res.State == StateExhausted {
		log.Warn("benchmark did not converge",
			"iterations", res.Iterations,
			"elapsed", res.Elapsed,
			"worst_kernel", worstKernel(res.Stats),
		)
	} else {
		log.Info("benchmark converged", "iterations", res.Iterations, "elapsed", res.Elapsed)
	}

	if err := cache.Store(cachePath, res.Samples); err != nil {
		return res, fmt.Errorf("store cache for %s/%s: %w", suite, benchmark, err)
	}
	return res, nil
}

func worstKernel(stats []KernelStat) string {
	worst := ""
	var u float64 = -1
	for _, ks := range stats {
		if ks.Uncertainty > u {
			worst, u = ks.Kernel, ks.Uncertainty
		}
	}
	return worst
}
