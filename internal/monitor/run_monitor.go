package monitor

import (
	"context"
	"time"
)

// RunMetrics summarises the profiler invocations seen by a RunMonitor.
type RunMetrics struct {
	// Active is the number of profiler runs currently holding the slot (0 or 1)
	Active int64
	// Started counts every acquired run
	Started int64
	// Failed counts runs released with an error
	Failed int64
	// Busy is the cumulative time spent inside profiler runs
	Busy time.Duration
}

// RunMonitor guards the profiler output namespace. Only one run may hold the
// slot at a time, because each run deletes and globs the same trace files.
type RunMonitor interface {
	// Acquire blocks until the run slot is free or ctx is done.
	Acquire(ctx context.Context) error

	// TryAcquire takes the slot without blocking. Returns true if successful.
	// The caller MUST call Release() when the run completes.
	TryAcquire() bool

	// Release frees the slot and records the outcome of the run.
	Release(err error)

	// GetMetrics returns the accumulated run statistics
	GetMetrics() RunMetrics
}
