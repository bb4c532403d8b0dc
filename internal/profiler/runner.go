// Package profiler runs nvprof against a single benchmark directory.
package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ciricc/kernelbench/internal/monitor"
)

const (
	DefaultBinary = "nvprof"
	// OutputPattern matches the per-process trace files written by --log-file.
	OutputPattern = "nvprof.csv.*"
	logFileArg    = "nvprof.csv.%p"
	targetScript  = "./profile"
)

// DefaultTargetArgs silences deprecation warnings of the benchmark entry point.
var DefaultTargetArgs = []string{"--depwarn=no"}

type Runner struct {
	binary     string
	targetArgs []string
	logger     *slog.Logger
	monitor    monitor.RunMonitor
}

type Option func(r *Runner)

func WithBinary(binary string) Option {
	return func(r *Runner) { r.binary = binary }
}

func WithTargetArgs(args ...string) Option {
	return func(r *Runner) { r.targetArgs = args }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

func WithMonitor(m monitor.RunMonitor) Option {
	return func(r *Runner) { r.monitor = m }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		binary:     DefaultBinary,
		targetArgs: DefaultTargetArgs,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.monitor == nil {
		r.monitor = monitor.NewSemaphoreRunMonitor()
	}
	return r
}

// Args returns the full profiler command line, without the binary.
func (r *Runner) Args() []string {
	args := []string{
		"--profile-from-start", "off",
		"--profile-child-processes",
		"--unified-memory-profiling", "off",
		"--print-gpu-trace",
		"--normalized-time-unit", "us",
		"--csv",
		"--log-file", logFileArg,
		targetScript,
	}
	return append(args, r.targetArgs...)
}

// Run profiles the benchmark in dir and returns the path of the single trace
// file it produced. The profiler runs with dir as its working directory; the
// process-wide working directory is never changed.
func (r *Runner) Run(ctx context.Context, dir string) (path string, err error) {
	log := r.logger.With("method", "Run", "dir", dir)

	if !r.monitor.TryAcquire() {
		log.Warn("profiler busy, waiting for the running invocation")
		if err := r.monitor.Acquire(ctx); err != nil {
			return "", fmt.Errorf("wait for profiler slot: %w", err)
		}
	}
	defer func() { r.monitor.Release(err) }()

	if err := removeOutputs(dir); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, r.binary, r.Args()...)
	cmd.Dir = dir
	log.Debug("starting profiler", "cmd", r.binary+" "+strings.Join(r.Args(), " "))

	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		log.Error("profiler failed", "error", runErr, "output", string(out))
		return "", &ExecutionError{Dir: dir, Output: out, Err: runErr}
	}

	matches, err := listOutputs(dir)
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		log.Error("no trace output", "output", string(out))
		return "", fmt.Errorf("%s: %w", dir, ErrNoOutput)
	case 1:
		return matches[0], nil
	default:
		log.Error("ambiguous trace output", "matches", matches)
		return "", &AmbiguousOutputError{Matches: matches}
	}
}

func listOutputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(OutputPattern, e.Name()); ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func removeOutputs(dir string) error {
	stale, err := listOutputs(dir)
	if err != nil {
		return err
	}
	for _, p := range stale {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale trace: %w", err)
		}
	}
	return nil
}
