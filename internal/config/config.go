package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Root is the directory holding one sub-directory per suite.
	Root string `yaml:"root" validate:"required"`
	// Suites are compared in order; the first is the baseline unless
	// Baseline names another one.
	Suites   []string `yaml:"suites" validate:"min=2,unique,dive,required"`
	Baseline string   `yaml:"baseline"`

	Profiler struct {
		Binary     string   `yaml:"binary" validate:"required"`
		TargetArgs []string `yaml:"target_args"`
	} `yaml:"profiler"`

	Convergence struct {
		MinKernelIterations  int     `yaml:"min_kernel_iterations" validate:"gte=1"`
		MaxKernelUncertainty float64 `yaml:"max_kernel_uncertainty" validate:"gt=0"`
		MaxBenchmarkRuns     int     `yaml:"max_benchmark_runs" validate:"gte=1"`
		MaxBenchmarkSeconds  float64 `yaml:"max_benchmark_seconds" validate:"gt=0"`
	} `yaml:"convergence"`

	// Blacklist maps a benchmark to kernels that must be told apart by row.
	// When set in the file it replaces the default table.
	Blacklist map[string][]string `yaml:"blacklist"`

	Output struct {
		CSV     string `yaml:"csv"`
		JSON    string `yaml:"json"`
		Metrics string `yaml:"metrics"`
	} `yaml:"output"`

	// FailFast aborts the whole run on the first failing pair.
	FailFast bool `yaml:"fail_fast"`
}

var validate = validator.New()

var ErrUnknownBaseline = errors.New("baseline is not among the configured suites")

func Default() Config {
	var c Config
	c.Root = "."
	c.Profiler.Binary = "nvprof"
	c.Profiler.TargetArgs = []string{"--depwarn=no"}
	c.Convergence.MinKernelIterations = 10
	c.Convergence.MaxKernelUncertainty = 0.02
	c.Convergence.MaxBenchmarkRuns = 100
	c.Convergence.MaxBenchmarkSeconds = 300
	c.Blacklist = map[string][]string{
		"bfs": {"Kernel", "Kernel2"},
	}
	c.Output.CSV = "results.csv"
	return c
}

// Load reads path on top of Default. An empty path yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	// A blacklist in the file replaces the default table instead of
	// extending it; an empty mapping disables disambiguation.
	c.Blacklist = nil
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Blacklist == nil {
		c.Blacklist = Default().Blacklist
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Baseline != "" {
		found := false
		for _, s := range c.Suites {
			found = found || s == c.Baseline
		}
		if !found {
			return fmt.Errorf("%w: %q not in %v", ErrUnknownBaseline, c.Baseline, c.Suites)
		}
	}
	return nil
}

// BaselineSuite returns the explicit baseline, or the first listed suite.
func (c Config) BaselineSuite() string {
	if c.Baseline != "" {
		return c.Baseline
	}
	if len(c.Suites) > 0 {
		return c.Suites[0]
	}
	return ""
}

func (c Config) MaxBenchmarkDuration() time.Duration {
	return time.Duration(c.Convergence.MaxBenchmarkSeconds * float64(time.Second))
}
