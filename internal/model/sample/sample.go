package sample

import (
	"errors"
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Sample is a single kernel duration, in microseconds, observed in one
// profiler run of a benchmark.
type Sample struct {
	Suite     string
	Benchmark string
	Kernel    string
	Time      float64
}

func (s Sample) Validate() error {
	if s.Suite == "" || s.Benchmark == "" || s.Kernel == "" {
		return errors.New("sample: suite, benchmark and kernel are required")
	}
	if math.IsNaN(s.Time) || s.Time < 0 {
		return fmt.Errorf("sample: invalid duration %v for kernel %q", s.Time, s.Kernel)
	}
	return nil
}

func NewSample(
	suite string,
	benchmark string,
	kernel string,
	time float64,
) Sample {
	return Sample{
		Suite:     suite,
		Benchmark: benchmark,
		Kernel:    kernel,
		Time:      time,
	}
}

// Pool is the append-only sample table built up during the gathering phase.
// It is not safe for concurrent use; gathering is sequential and the
// comparison step only receives a snapshot.
type Pool struct {
	samples []Sample
}

func NewPool() *Pool {
	return &Pool{}
}

func (p *Pool) Append(samples ...Sample) {
	p.samples = append(p.samples, samples...)
}

func (p *Pool) Len() int {
	return len(p.samples)
}

// Samples returns a copy of the pooled samples.
func (p *Pool) Samples() []Sample {
	out := make([]Sample, len(p.samples))
	copy(out, p.samples)
	return out
}

// Filter returns the samples of one (suite, benchmark) pair.
func (p *Pool) Filter(suite, benchmark string) []Sample {
	return lo.Filter(p.samples, func(s Sample, _ int) bool {
		return s.Suite == suite && s.Benchmark == benchmark
	})
}

// Suites returns the distinct suites in insertion order.
func (p *Pool) Suites() []string {
	return lo.Uniq(lo.Map(p.samples, func(s Sample, _ int) string { return s.Suite }))
}

// Benchmarks returns the distinct benchmarks in insertion order.
func (p *Pool) Benchmarks() []string {
	return lo.Uniq(lo.Map(p.samples, func(s Sample, _ int) string { return s.Benchmark }))
}

// Durations extracts the Time field of every sample.
func Durations(samples []Sample) []float64 {
	return lo.Map(samples, func(s Sample, _ int) float64 { return s.Time })
}
