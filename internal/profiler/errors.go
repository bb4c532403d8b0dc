package profiler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProfilerExecution matches *ExecutionError.
	ErrProfilerExecution = errors.New("profiler exited with an error")
	// ErrNoOutput means the profiler left no trace file behind.
	ErrNoOutput = errors.New("profiler produced no trace output")
	// ErrAmbiguousOutput matches *AmbiguousOutputError.
	ErrAmbiguousOutput = errors.New("profiler produced more than one trace output")
)

// ExecutionError carries the captured profiler output of a failed run.
type ExecutionError struct {
	Dir    string
	Output []byte
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("profiler in %s: %v\n%s", e.Dir, e.Err, strings.TrimSpace(string(e.Output)))
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ExecutionError) Is(target error) bool { return target == ErrProfilerExecution }

// AmbiguousOutputError lists the trace files found after a single run. It
// usually means stale files from an earlier run or a concurrent writer.
type AmbiguousOutputError struct {
	Matches []string
}

func (e *AmbiguousOutputError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAmbiguousOutput, strings.Join(e.Matches, ", "))
}

func (e *AmbiguousOutputError) Is(target error) bool { return target == ErrAmbiguousOutput }
