// Package metrics exports comparison results in the Prometheus text format,
// for pickup by a node_exporter textfile collector.
package metrics

import (
	"github.com/ciricc/kernelbench/internal/monitor"
	"github.com/ciricc/kernelbench/pkg/benchreport"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kernelbench"

type Exporter struct {
	reg *prometheus.Registry

	ratio          *prometheus.GaugeVec
	suiteTotal     *prometheus.GaugeVec
	pairIterations *prometheus.GaugeVec
	profilerRuns   *prometheus.GaugeVec
	profilerBusy   prometheus.Gauge
	info           *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		ratio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ratio",
			Help:      "Minimum kernel time of a suite divided by the baseline's.",
		}, []string{"suite", "benchmark", "kernel"}),
		suiteTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suite_total_ratio",
			Help:      "Mean per-benchmark total ratio of a suite.",
		}, []string{"suite"}),
		pairIterations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pair_iterations",
			Help:      "Profiler invocations spent on a (suite, benchmark) pair.",
		}, []string{"suite", "benchmark", "state"}),
		profilerRuns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiler_runs",
			Help:      "Profiler invocations in this run by outcome.",
		}, []string{"result"}),
		profilerBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiler_busy_seconds",
			Help:      "Wall time spent inside the profiler.",
		}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Constant 1, labelled with the run identity.",
		}, []string{"run_id", "baseline", "gpu"}),
	}
	e.reg.MustRegister(e.ratio, e.suiteTotal, e.pairIterations, e.profilerRuns, e.profilerBusy, e.info)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// ObserveReport sets the result gauges from a finished report.
func (e *Exporter) ObserveReport(r *benchreport.Report) {
	gpu := ""
	if len(r.Env.GPUs) > 0 {
		gpu = r.Env.GPUs[0].Name
	}
	e.info.WithLabelValues(r.RunID, r.Params.Baseline, gpu).Set(1)

	for _, row := range r.Rows {
		for _, s := range r.Suites {
			e.ratio.WithLabelValues(s, row.Benchmark, row.Kernel).Set(float64(row.Ratios[s]))
		}
	}
	for _, t := range r.Totals {
		e.suiteTotal.WithLabelValues(t.Suite).Set(float64(t.Ratio))
	}
	for _, p := range r.Pairs {
		e.pairIterations.WithLabelValues(p.Suite, p.Benchmark, p.State).Set(float64(p.Iterations))
	}
}

func (e *Exporter) ObserveRuns(m monitor.RunMetrics) {
	e.profilerRuns.WithLabelValues("ok").Set(float64(m.Started - m.Failed))
	e.profilerRuns.WithLabelValues("failed").Set(float64(m.Failed))
	e.profilerBusy.Set(m.Busy.Seconds())
}

// WriteTextfile atomically writes all gauges to path.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.reg)
}
