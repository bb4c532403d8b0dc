package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_Validate(t *testing.T) {
	require.NoError(t, NewSample("cuda", "bfs", "Kernel", 12.5).Validate())
	assert.Error(t, NewSample("", "bfs", "Kernel", 1).Validate())
	assert.Error(t, NewSample("cuda", "bfs", "Kernel", -1).Validate())
	assert.Error(t, NewSample("cuda", "bfs", "Kernel", math.NaN()).Validate())
}

func TestPool(t *testing.T) {
	p := NewPool()
	p.Append(
		NewSample("cuda", "bfs", "Kernel", 1),
		NewSample("cuda", "nw", "needle", 2),
		NewSample("julia", "bfs", "Kernel", 3),
	)
	p.Append(NewSample("julia", "bfs", "Kernel2", 4))

	assert.Equal(t, 4, p.Len())
	assert.Equal(t, []string{"cuda", "julia"}, p.Suites())
	assert.Equal(t, []string{"bfs", "nw"}, p.Benchmarks())
	assert.Len(t, p.Filter("julia", "bfs"), 2)
	assert.Equal(t, []float64{3, 4}, Durations(p.Filter("julia", "bfs")))

	snapshot := p.Samples()
	snapshot[0].Time = 100
	assert.Equal(t, 1.0, p.Samples()[0].Time, "snapshot must not alias the pool")
}
