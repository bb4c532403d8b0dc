package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// SemaphoreRunMonitor implements RunMonitor with a weight-1 semaphore.
type SemaphoreRunMonitor struct {
	sem     *semaphore.Weighted
	active  atomic.Int64
	started atomic.Int64
	failed  atomic.Int64

	mu        sync.Mutex
	busy      time.Duration
	heldSince time.Time
	now       func() time.Time
}

func NewSemaphoreRunMonitor() *SemaphoreRunMonitor {
	return &SemaphoreRunMonitor{
		sem: semaphore.NewWeighted(1),
		now: time.Now,
	}
}

func (m *SemaphoreRunMonitor) Acquire(ctx context.Context) error {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	m.hold()
	return nil
}

func (m *SemaphoreRunMonitor) TryAcquire() bool {
	if m.sem.TryAcquire(1) {
		m.hold()
		return true
	}
	return false
}

func (m *SemaphoreRunMonitor) hold() {
	m.active.Add(1)
	m.started.Add(1)
	m.mu.Lock()
	m.heldSince = m.now()
	m.mu.Unlock()
}

func (m *SemaphoreRunMonitor) Release(err error) {
	if err != nil {
		m.failed.Add(1)
	}
	m.mu.Lock()
	m.busy += m.now().Sub(m.heldSince)
	m.mu.Unlock()
	m.active.Add(-1)
	m.sem.Release(1)
}

func (m *SemaphoreRunMonitor) GetMetrics() RunMetrics {
	m.mu.Lock()
	busy := m.busy
	m.mu.Unlock()
	return RunMetrics{
		Active:  m.active.Load(),
		Started: m.started.Load(),
		Failed:  m.failed.Load(),
		Busy:    busy,
	}
}

var _ RunMonitor = (*SemaphoreRunMonitor)(nil)
