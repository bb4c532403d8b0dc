package app

import (
	"context"

	"github.com/ciricc/kernelbench/internal/compare"
	"github.com/ciricc/kernelbench/internal/gpuinfo"
	"github.com/ciricc/kernelbench/pkg/benchreport"
	"github.com/samber/lo"
)

func (a *Application) newReport(ctx context.Context, t *compare.Table, pairs []benchreport.PairResult, errs error) *benchreport.Report {
	cfg := a.Config
	r := benchreport.New(reportEnv(a.probe(ctx)), benchreport.ReportParams{
		Root:                 cfg.Root,
		Suites:               cfg.Suites,
		Baseline:             cfg.BaselineSuite(),
		ProfilerBinary:       cfg.Profiler.Binary,
		ProfilerArgs:         cfg.Profiler.TargetArgs,
		MinKernelIterations:  cfg.Convergence.MinKernelIterations,
		MaxKernelUncertainty: cfg.Convergence.MaxKernelUncertainty,
		MaxBenchmarkRuns:     cfg.Convergence.MaxBenchmarkRuns,
		MaxBenchmarkSeconds:  cfg.Convergence.MaxBenchmarkSeconds,
		Blacklist:            cfg.Blacklist,
		FailFast:             cfg.FailFast,
	})
	r.Pairs = pairs
	r.Errors = describeErrors(errs)
	fillReport(r, t)
	return r
}

func reportEnv(env gpuinfo.Env) benchreport.ReportEnv {
	return benchreport.ReportEnv{
		OS:            env.OS,
		Arch:          env.Arch,
		CPUModel:      env.CPUModel,
		CPUNumLogical: env.CPUNumLogical,
		GPUs: lo.Map(env.GPUs, func(g gpuinfo.GPU, _ int) benchreport.ReportGPU {
			return benchreport.ReportGPU{
				Name:          g.Name,
				DriverVersion: g.DriverVersion,
				CUDAVersion:   g.CUDAVersion,
				VRAMTotalMB:   g.MemTotalMB,
			}
		}),
	}
}

// fillReport copies the comparison table into the report.
func fillReport(r *benchreport.Report, t *compare.Table) {
	r.Suites = t.Suites
	r.Rows = make([]benchreport.Row, 0, len(t.Rows))
	for i, row := range t.Rows {
		ratios := make(map[string]benchreport.Ratio, len(t.Suites))
		for _, s := range t.Suites {
			v, _ := t.Ratio(s, i)
			ratios[s] = benchreport.Ratio(v)
		}
		r.Rows = append(r.Rows, benchreport.Row{
			Benchmark: row.Benchmark,
			Kernel:    row.Kernel,
			Ratios:    ratios,
		})
	}
	r.Skipped = lo.Map(t.Skipped, func(row compare.Row, _ int) benchreport.Row {
		return benchreport.Row{Benchmark: row.Benchmark, Kernel: row.Kernel}
	})
	r.Totals = lo.Map(t.SuiteTotals(), func(st compare.SuiteTotal, _ int) benchreport.Total {
		return benchreport.Total{Suite: st.Suite, Ratio: benchreport.Ratio(st.Ratio)}
	})
}

// TableFromReport rebuilds the comparison table of a saved report.
func TableFromReport(r *benchreport.Report) (*compare.Table, error) {
	rows := lo.Map(r.Rows, func(row benchreport.Row, _ int) compare.Row {
		return compare.Row{Benchmark: row.Benchmark, Kernel: row.Kernel}
	})
	ratios := make(map[string][]float64, len(r.Suites))
	for _, s := range r.Suites {
		series := make([]float64, 0, len(r.Rows))
		for _, row := range r.Rows {
			series = append(series, float64(row.Ratios[s]))
		}
		ratios[s] = series
	}
	t, err := compare.NewTable(r.Params.Baseline, r.Suites, rows, ratios)
	if err != nil {
		return nil, err
	}
	t.Skipped = lo.Map(r.Skipped, func(row benchreport.Row, _ int) compare.Row {
		return compare.Row{Benchmark: row.Benchmark, Kernel: row.Kernel}
	})
	return t, nil
}
