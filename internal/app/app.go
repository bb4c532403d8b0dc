package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ciricc/kernelbench/internal/catalog"
	"github.com/ciricc/kernelbench/internal/compare"
	"github.com/ciricc/kernelbench/internal/config"
	"github.com/ciricc/kernelbench/internal/convergence"
	"github.com/ciricc/kernelbench/internal/gpuinfo"
	"github.com/ciricc/kernelbench/internal/metrics"
	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/ciricc/kernelbench/internal/monitor"
	"github.com/ciricc/kernelbench/internal/profiler"
	"github.com/ciricc/kernelbench/internal/trace"
	"github.com/ciricc/kernelbench/pkg/benchreport"
	"go.uber.org/multierr"
)

type Application struct {
	Config     config.Config
	logger     *slog.Logger
	out        io.Writer
	runMonitor monitor.RunMonitor
	source     convergence.Source
	controller *convergence.Controller
	probe      func(ctx context.Context) gpuinfo.Env
}

type Option func(a *Application)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithOutput sets where the console table is printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.out = w }
}

// WithSource replaces the nvprof-backed sample source.
func WithSource(src convergence.Source) Option {
	return func(a *Application) { a.source = src }
}

func WithEnvProbe(probe func(ctx context.Context) gpuinfo.Env) Option {
	return func(a *Application) { a.probe = probe }
}

// NewLogger builds the text logger used by every component. Logs go to w so
// that stdout stays free for the result table.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

func New(cfg config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{
		Config:     cfg,
		logger:     slog.Default(),
		out:        os.Stdout,
		runMonitor: monitor.NewSemaphoreRunMonitor(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.source == nil {
		runner := profiler.NewRunner(
			profiler.WithBinary(cfg.Profiler.Binary),
			profiler.WithTargetArgs(cfg.Profiler.TargetArgs...),
			profiler.WithLogger(a.logger),
			profiler.WithMonitor(a.runMonitor),
		)
		a.source = &convergence.ProfilerSource{
			Runner:    runner,
			Blacklist: trace.Blacklist(cfg.Blacklist),
		}
	}
	if a.probe == nil {
		a.probe = func(ctx context.Context) gpuinfo.Env {
			return gpuinfo.Probe(ctx, gpuinfo.DefaultSMIBinary, a.logger)
		}
	}

	a.controller = convergence.New(a.source,
		convergence.WithMinKernelIterations(cfg.Convergence.MinKernelIterations),
		convergence.WithMaxKernelUncertainty(cfg.Convergence.MaxKernelUncertainty),
		convergence.WithMaxBenchmarkRuns(cfg.Convergence.MaxBenchmarkRuns),
		convergence.WithMaxBenchmarkDuration(cfg.MaxBenchmarkDuration()),
		convergence.WithLogger(a.logger),
	)
	return a, nil
}

// Run gathers every (suite, benchmark) pair, compares the pooled samples and
// writes the configured outputs. A failed pair is recorded and the run goes
// on, unless FailFast is set. The returned error joins every pair failure;
// the report is still returned alongside it.
func (a *Application) Run(ctx context.Context) (*benchreport.Report, error) {
	cfg := a.Config
	logger := a.logger.With("method", "Run")

	benchmarks, err := catalog.Discover(cfg.Root, cfg.Suites)
	switch {
	case errors.Is(err, catalog.ErrNoCommonBenchmarks):
		logger.Warn("nothing to compare", "root", cfg.Root, "suites", cfg.Suites)
	case err != nil:
		return nil, err
	default:
		logger.Info("discovered benchmarks", "count", len(benchmarks), "benchmarks", benchmarks)
	}

	pool := sample.NewPool()
	var (
		pairs []benchreport.PairResult
		errs  error
	)
	for _, suite := range cfg.Suites {
		for _, benchmark := range benchmarks {
			if err := ctx.Err(); err != nil {
				return nil, multierr.Append(errs, err)
			}
			dir := filepath.Join(cfg.Root, suite, benchmark)
			res, err := a.controller.Gather(ctx, suite, benchmark, dir)
			if err != nil {
				logger.Error("pair failed", "suite", suite, "benchmark", benchmark, "error", err)
				errs = multierr.Append(errs, err)
				pairs = append(pairs, benchreport.PairResult{
					Suite:     suite,
					Benchmark: benchmark,
					State:     "failed",
					Error:     err.Error(),
				})
				if cfg.FailFast {
					return nil, errs
				}
				continue
			}
			pool.Append(res.Samples...)
			pairs = append(pairs, pairResult(res, len(pool.Filter(suite, benchmark))))
		}
	}
	logger.Info("gathering finished",
		"samples", pool.Len(),
		"suites", pool.Suites(),
		"benchmarks", pool.Benchmarks(),
		"failed_pairs", len(multierr.Errors(errs)),
	)

	table, err := compare.Compare(pool.Samples(), cfg.Suites, cfg.BaselineSuite(), a.logger)
	if err != nil {
		return nil, multierr.Append(errs, err)
	}

	report := a.newReport(ctx, table, pairs, errs)
	if err := a.writeOutputs(report); err != nil {
		return report, multierr.Append(errs, err)
	}
	return report, errs
}

func pairResult(res convergence.Result, pooled int) benchreport.PairResult {
	return benchreport.PairResult{
		Suite:          res.Suite,
		Benchmark:      res.Benchmark,
		State:          res.State.String(),
		Iterations:     res.Iterations,
		Samples:        pooled,
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
}

func (a *Application) writeOutputs(r *benchreport.Report) error {
	out := a.Config.Output
	var errs error
	if err := benchreport.PrintTable(a.out, r); err != nil {
		errs = multierr.Append(errs, err)
	}
	if out.CSV != "" {
		errs = multierr.Append(errs, benchreport.WriteCSVFile(r, out.CSV))
	}
	if out.JSON != "" {
		errs = multierr.Append(errs, benchreport.WriteJSON(r, out.JSON))
	}
	if out.Metrics != "" {
		e := metrics.NewExporter()
		e.ObserveReport(r)
		e.ObserveRuns(a.runMonitor.GetMetrics())
		errs = multierr.Append(errs, e.WriteTextfile(out.Metrics))
	}
	if errs == nil {
		a.logger.Info("outputs written",
			"csv", out.CSV,
			"json", out.JSON,
			"metrics", out.Metrics,
			"run_id", r.RunID,
		)
	}
	return errs
}

// Catalog lists the benchmarks common to all configured suites, and the
// benchmarks found per suite.
func (a *Application) Catalog() (common []string, perSuite map[string][]string, err error) {
	perSuite = make(map[string][]string, len(a.Config.Suites))
	for _, s := range a.Config.Suites {
		names, err := catalog.Benchmarks(a.Config.Root, s)
		if err != nil {
			return nil, nil, err
		}
		perSuite[s] = names
	}
	common, err = catalog.Discover(a.Config.Root, a.Config.Suites)
	if errors.Is(err, catalog.ErrNoCommonBenchmarks) {
		err = nil
	}
	return common, perSuite, err
}

func describeErrors(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, strings.TrimSpace(e.Error()))
	}
	return out
}
