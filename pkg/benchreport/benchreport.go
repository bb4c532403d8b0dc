// Package benchreport is the on-disk form of a kernel comparison run.
package benchreport

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const Version = "kernelbench/v1"

// Ratio is a slowdown factor. Non-finite values are stored as null.
type Ratio float64

func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Ratio(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

type ReportGPU struct {
	Name          string  `json:"name"`
	DriverVersion string  `json:"driver_version"`
	CUDAVersion   string  `json:"cuda_version"`
	VRAMTotalMB   float64 `json:"vram_total_mb"`
}

type ReportEnv struct {
	OS            string      `json:"os"`
	Arch          string      `json:"arch"`
	CPUModel      string      `json:"cpu_model"`
	CPUNumLogical int         `json:"cpu_num_logical"`
	GPUs          []ReportGPU `json:"gpus"`
}

type ReportParams struct {
	Root                 string              `json:"root"`
	Suites               []string            `json:"suites"`
	Baseline             string              `json:"baseline"`
	ProfilerBinary       string              `json:"profiler_binary"`
	ProfilerArgs         []string            `json:"profiler_args"`
	MinKernelIterations  int                 `json:"min_kernel_iterations"`
	MaxKernelUncertainty float64             `json:"max_kernel_uncertainty"`
	MaxBenchmarkRuns     int                 `json:"max_benchmark_runs"`
	MaxBenchmarkSeconds  float64             `json:"max_benchmark_seconds"`
	Blacklist            map[string][]string `json:"blacklist,omitempty"`
	FailFast             bool                `json:"fail_fast"`
}

// PairResult records how one (suite, benchmark) measurement ended.
type PairResult struct {
	Suite          string  `json:"suite"`
	Benchmark      string  `json:"benchmark"`
	State          string  `json:"state"`
	Iterations     int     `json:"iterations"`
	Samples        int     `json:"samples"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Error          string  `json:"error,omitempty"`
}

type Row struct {
	Benchmark string           `json:"benchmark"`
	Kernel    string           `json:"kernel"`
	Ratios    map[string]Ratio `json:"ratios"`
}

type Total struct {
	Suite string `json:"suite"`
	Ratio Ratio  `json:"ratio"`
}

type Report struct {
	Version          string       `json:"version"`
	RunID            string       `json:"run_id"`
	TimestampRFC3339 string       `json:"timestamp_rfc3339"`
	Env              ReportEnv    `json:"env"`
	Params           ReportParams `json:"params"`
	// Suites are the compared suites in column order, baseline excluded.
	Suites  []string     `json:"suites"`
	Pairs   []PairResult `json:"pairs"`
	Rows    []Row        `json:"rows"`
	Skipped []Row        `json:"skipped,omitempty"`
	Totals  []Total      `json:"totals"`
	Errors  []string     `json:"errors,omitempty"`
}

func New(env ReportEnv, params ReportParams) *Report {
	return &Report{
		Version:          Version,
		RunID:            uuid.NewString(),
		TimestampRFC3339: time.Now().UTC().Format(time.RFC3339),
		Env:              env,
		Params:           params,
	}
}

// WriteJSON writes the report to path, or to stdout when path is empty.
func WriteJSON(r *Report, path string) error {
	if path == "" {
		return encode(os.Stdout, r)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encode(f *os.File, r *Report) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func Load(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r Report
	if err := json.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if r.Version != Version {
		return nil, fmt.Errorf("decode %s: unsupported report version %q", path, r.Version)
	}
	return &r, nil
}

type Loaded struct {
	Path   string
	Report *Report
}

// Skipped is a *.json file LoadDir could not read as a report.
type Skipped struct {
	Path string
	Err  error
}

// LoadDir reads every *.json report below dir. Files that fail to load are
// returned in skipped rather than aborting the walk.
func LoadDir(dir string) (loaded []Loaded, skipped []Skipped, err error) {
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".json") {
			return nil
		}
		r, err := Load(path)
		if err != nil {
			skipped = append(skipped, Skipped{Path: path, Err: err})
			return nil
		}
		loaded = append(loaded, Loaded{Path: path, Report: r})
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, nil, err
	}
	return loaded, skipped, nil
}
