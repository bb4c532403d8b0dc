// Package cache persists the samples gathered for one (suite, benchmark)
// pair next to the benchmark, so reruns skip measuring it.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ciricc/kernelbench/internal/model/sample"
)

// FileName is the cache file written inside each benchmark directory.
const FileName = "profile.csv"

var header = []string{"suite", "benchmark", "kernel", "time"}

var ErrCorrupt = errors.New("corrupt sample cache")

// Path returns the cache location for a benchmark directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether a cache file is present. Presence alone marks the
// pair as complete.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func Load(path string) ([]sample.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

func Read(r io.Reader) ([]sample.Sample, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = len(header)

	first, err := rd.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i, col := range header {
		if first[i] != col {
			return nil, fmt.Errorf("%w: unexpected header %v", ErrCorrupt, first)
		}
	}

	var out []sample.Sample
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		t, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: time %q", ErrCorrupt, rec[3])
		}
		s := sample.NewSample(rec[0], rec[1], rec[2], t)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func Write(w io.Writer, samples []sample.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range samples {
		rec := []string{s.Suite, s.Benchmark, s.Kernel, strconv.FormatFloat(s.Time, 'g', -1, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Store writes samples to path atomically: a partially written file would
// otherwise be taken as a complete measurement on the next run.
func Store(path string, samples []sample.Sample) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+".*")
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, samples); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}
