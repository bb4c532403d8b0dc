package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphoreRunMonitor_SingleSlot(t *testing.T) {
	m := NewSemaphoreRunMonitor()

	require.True(t, m.TryAcquire())
	assert.False(t, m.TryAcquire(), "second run must not overlap the first")
	assert.Equal(t, int64(1), m.GetMetrics().Active)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Acquire(ctx), context.DeadlineExceeded)

	m.Release(nil)
	require.NoError(t, m.Acquire(context.Background()))
	m.Release(errors.New("boom"))

	metrics := m.GetMetrics()
	assert.Equal(t, int64(0), metrics.Active)
	assert.Equal(t, int64(2), metrics.Started)
	assert.Equal(t, int64(1), metrics.Failed)
}

func TestSemaphoreRunMonitor_BusyTime(t *testing.T) {
	m := NewSemaphoreRunMonitor()
	clock := time.Unix(0, 0)
	m.now = func() time.Time { return clock }

	require.True(t, m.TryAcquire())
	clock = clock.Add(3 * time.Second)
	m.Release(nil)

	assert.Equal(t, 3*time.Second, m.GetMetrics().Busy)
}
