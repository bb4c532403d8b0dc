package profiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ciricc/kernelbench/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProfiler writes an executable shell script standing in for nvprof.
func fakeProfiler(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "nvprof")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunner_Run(t *testing.T) {
	bin := fakeProfiler(t, `printf '%s\n' "$@" > args.txt
echo "==1== NVPROF" > nvprof.csv.1234`)
	dir := t.TempDir()
	stale := filepath.Join(dir, "nvprof.csv.99")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	m := monitor.NewSemaphoreRunMonitor()
	r := NewRunner(WithBinary(bin), WithMonitor(m))

	path, err := r.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nvprof.csv.1234"), path)
	assert.NoFileExists(t, stale)

	args, err := os.ReadFile(filepath.Join(dir, "args.txt"))
	require.NoError(t, err, "profiler must run inside the benchmark directory")
	assert.Equal(t, r.Args(), strings.Fields(string(args)))
	assert.Contains(t, r.Args(), "--print-gpu-trace")
	assert.Equal(t, []string{"./profile", "--depwarn=no"}, r.Args()[len(r.Args())-2:])

	assert.Equal(t, int64(1), m.GetMetrics().Started)
	assert.Equal(t, int64(0), m.GetMetrics().Failed)
}

func TestRunner_ExecutionError(t *testing.T) {
	bin := fakeProfiler(t, `echo "no CUDA-capable device" >&2
exit 3`)
	m := monitor.NewSemaphoreRunMonitor()
	r := NewRunner(WithBinary(bin), WithMonitor(m))

	_, err := r.Run(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrProfilerExecution)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Contains(t, string(execErr.Output), "no CUDA-capable device")
	assert.Equal(t, int64(1), m.GetMetrics().Failed)
}

func TestRunner_NoOutput(t *testing.T) {
	bin := fakeProfiler(t, `exit 0`)
	r := NewRunner(WithBinary(bin))

	_, err := r.Run(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestRunner_AmbiguousOutput(t *testing.T) {
	bin := fakeProfiler(t, `touch nvprof.csv.1 nvprof.csv.2`)
	r := NewRunner(WithBinary(bin))

	_, err := r.Run(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrAmbiguousOutput)

	var ambErr *AmbiguousOutputError
	require.True(t, errors.As(err, &ambErr))
	assert.Len(t, ambErr.Matches, 2)
}

func TestRunner_RerunIsIdempotent(t *testing.T) {
	bin := fakeProfiler(t, `c="$(dirname "$0")/count"
n=$(( $(cat "$c" 2>/dev/null || echo 0) + 1 ))
echo $n > "$c"
touch nvprof.csv.$n`)
	dir := t.TempDir()
	r := NewRunner(WithBinary(bin))

	first, err := r.Run(context.Background(), dir)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.NoFileExists(t, first)
	assert.FileExists(t, second)
}

func TestRunner_WaitsForBusySlot(t *testing.T) {
	bin := fakeProfiler(t, `echo "==1== NVPROF" > nvprof.csv.1`)
	m := monitor.NewSemaphoreRunMonitor()
	r := NewRunner(WithBinary(bin), WithMonitor(m))

	require.True(t, m.TryAcquire(), "simulate an overlapping invocation")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)

	m.Release(nil)
	path, err := r.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "nvprof.csv.1", filepath.Base(path))
}
