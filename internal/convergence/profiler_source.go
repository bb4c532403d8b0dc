package convergence

import (
	"context"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/ciricc/kernelbench/internal/profiler"
	"github.com/ciricc/kernelbench/internal/trace"
)

// ProfilerSource measures a benchmark with one profiler run and parses the
// resulting trace.
type ProfilerSource struct {
	Runner    *profiler.Runner
	Blacklist trace.Blacklist
	Rules     []trace.Rule
}

func (p *ProfilerSource) Measure(ctx context.Context, suite, benchmark, dir string) ([]sample.Sample, error) {
	path, err := p.Runner.Run(ctx, dir)
	if err != nil {
		return nil, err
	}
	return trace.ParseFile(path, trace.Options{
		Suite:     suite,
		Benchmark: benchmark,
		Rules:     p.Rules,
		Blacklist: p.Blacklist,
	})
}

var _ Source = (*ProfilerSource)(nil)
