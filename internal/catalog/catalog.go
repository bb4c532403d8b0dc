// Package catalog discovers the benchmarks that every suite provides.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/lo"
)

// ProfileScript is the entry point a benchmark directory must contain.
const ProfileScript = "profile"

var (
	// ErrNoCommonBenchmarks is returned together with an empty result when
	// the suites share no benchmark. Callers treat it as non-fatal.
	ErrNoCommonBenchmarks = errors.New("no benchmarks common to all suites")
)

// Benchmarks lists the qualifying benchmark directories of a single suite:
// immediate sub-directories of root/suite that contain a profile file.
func Benchmarks(root, suite string) ([]string, error) {
	suiteDir := filepath.Join(root, suite)
	entries, err := os.ReadDir(suiteDir)
	if err != nil {
		return nil, fmt.Errorf("read suite %s: %w", suite, err)
	}

	var out []string
	for _, e := range entries {
		// Stat follows symlinked benchmark directories.
		dir, err := os.Stat(filepath.Join(suiteDir, e.Name()))
		if err != nil || !dir.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(suiteDir, e.Name(), ProfileScript))
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Discover returns the sorted set of benchmarks present in every suite.
func Discover(root string, suites []string) ([]string, error) {
	if len(suites) == 0 {
		return []string{}, ErrNoCommonBenchmarks
	}

	var common []string
	for i, suite := range suites {
		names, err := Benchmarks(root, suite)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			common = names
			continue
		}
		common = lo.Intersect(common, names)
	}

	if len(common) == 0 {
		return []string{}, ErrNoCommonBenchmarks
	}
	sort.Strings(common)
	return common, nil
}
