// Package trace turns nvprof GPU-trace CSV logs into kernel samples.
package trace

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/samber/lo"
)

const (
	// APIMarker prefixes rows that are runtime/driver activity (memcpy,
	// memset) rather than kernel launches.
	APIMarker = "[CUDA "

	preamblePrefix = "=="
	nameColumn     = "Name"
	durationColumn = "Duration"
)

var (
	ErrEmptyTrace     = errors.New("trace contains no data rows")
	ErrMalformedTrace = errors.New("malformed trace")
)

// Blacklist lists, per benchmark, kernels whose name does not identify a
// single logical launch. Occurrences are suffixed with their row number.
type Blacklist map[string][]string

// DefaultBlacklist holds the benchmarks known to launch same-named kernels
// with different shapes and durations.
var DefaultBlacklist = Blacklist{
	"bfs": {"Kernel", "Kernel2"},
}

type Options struct {
	Suite     string
	Benchmark string
	// Rules defaults to DefaultRules.
	Rules []Rule
	// Blacklist defaults to DefaultBlacklist.
	Blacklist Blacklist
}

var timeUnits = map[string]float64{
	"s":  1e6,
	"ms": 1e3,
	"us": 1,
	"ns": 1e-3,
}

// ParseFile parses the trace at path.
func ParseFile(path string, opts Options) ([]sample.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// Parse reads an nvprof --csv --print-gpu-trace log: preamble lines starting
// with "==", a header row, a units row, then one row per GPU activity.
func Parse(r io.Reader, opts Options) ([]sample.Sample, error) {
	if opts.Rules == nil {
		opts.Rules = DefaultRules
	}
	if opts.Blacklist == nil {
		opts.Blacklist = DefaultBlacklist
	}

	header, units, data, err := splitTrace(r)
	if err != nil {
		return nil, err
	}

	rd := csv.NewReader(strings.NewReader(header + "\n" + data))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrace, err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyTrace
	}

	cols := records[0]
	nameIdx := lo.IndexOf(cols, nameColumn)
	durIdx := lo.IndexOf(cols, durationColumn)
	if nameIdx < 0 || durIdx < 0 {
		return nil, fmt.Errorf("%w: missing %q or %q column in %v", ErrMalformedTrace, nameColumn, durationColumn, cols)
	}
	scale, err := durationScale(units, durIdx)
	if err != nil {
		return nil, err
	}

	blacklisted := opts.Blacklist[opts.Benchmark]

	var out []sample.Sample
	row := 0
	for i, rec := range records[1:] {
		if nameIdx >= len(rec) || durIdx >= len(rec) {
			return nil, fmt.Errorf("%w: row %d has %d fields", ErrMalformedTrace, i+1, len(rec))
		}
		raw := rec[nameIdx]
		if strings.HasPrefix(raw, APIMarker) {
			continue
		}
		row++

		d, err := strconv.ParseFloat(strings.TrimSpace(rec[durIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d duration %q", ErrMalformedTrace, i+1, rec[durIdx])
		}

		kernel := Demangle(raw, opts.Rules)
		if lo.Contains(blacklisted, kernel) {
			kernel = kernel + "_" + strconv.Itoa(row)
		}
		s := sample.NewSample(opts.Suite, opts.Benchmark, kernel, d*scale)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTrace, i+1, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// splitTrace drops the preamble and units row and returns the header, the
// units row and the remaining data lines.
func splitTrace(r io.Reader) (header, units, data string, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if len(lines) == 0 && (line == "" || strings.HasPrefix(line, preamblePrefix)) {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return "", "", "", fmt.Errorf("read trace: %w", err)
	}
	if len(lines) < 3 {
		return "", "", "", ErrEmptyTrace
	}

	data = strings.Join(lo.Filter(lines[2:], func(l string, _ int) bool {
		return strings.TrimSpace(l) != "" && !strings.HasPrefix(l, preamblePrefix)
	}), "\n")
	if data == "" {
		return "", "", "", ErrEmptyTrace
	}
	return lines[0], lines[1], data, nil
}

// durationScale converts the unit of the Duration column to microseconds.
func durationScale(units string, durIdx int) (float64, error) {
	fields, err := csv.NewReader(strings.NewReader(units)).Read()
	if err != nil || durIdx >= len(fields) {
		return 1, nil
	}
	unit := strings.TrimSpace(fields[durIdx])
	if unit == "" {
		return 1, nil
	}
	scale, ok := timeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("%w: unknown duration unit %q", ErrMalformedTrace, unit)
	}
	return scale, nil
}
