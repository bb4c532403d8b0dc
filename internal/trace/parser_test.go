package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const traceHeader = `"Start","Duration","Grid X","Grid Y","Grid Z","Block X","Block Y","Block Z","Device","Context","Stream","Name"`
const traceUnits = `s,us,,,,,,,,,,`

func buildTrace(preamble int, rows ...string) string {
	var b strings.Builder
	for i := 0; i < preamble; i++ {
		fmt.Fprintf(&b, "==4242== preamble line %d\n", i+1)
	}
	b.WriteString(traceHeader + "\n")
	b.WriteString(traceUnits + "\n")
	for _, r := range rows {
		b.WriteString(r + "\n")
	}
	return b.String()
}

func row(duration string, name string) string {
	return fmt.Sprintf(`0.5,%s,1,1,1,256,1,1,"Tesla V100 (0)",1,7,"%s"`, duration, name)
}

func TestParse_DropsAPIRows(t *testing.T) {
	in := buildTrace(2,
		row("1.5", "[CUDA memcpy HtoD]"),
		row("10.0", "saxpy(float*, float*, int)"),
		row("2.0", "[CUDA memset]"),
		row("11.0", "saxpy(float*, float*, int)"),
		row("12.0", "wrapper_reduce_3 (CuDeviceArray<Float32>)"),
	)

	samples, err := Parse(strings.NewReader(in), Options{Suite: "cuda", Benchmark: "saxpy"})
	require.NoError(t, err)
	require.Len(t, samples, 5-2)

	assert.Equal(t, []string{"saxpy", "saxpy", "reduce"}, lo.Map(samples, func(s sample.Sample, _ int) string { return s.Kernel }))
	for _, s := range samples {
		assert.Equal(t, "cuda", s.Suite)
		assert.Equal(t, "saxpy", s.Benchmark)
	}
	assert.Equal(t, 10.0, samples[0].Time)
}

func TestParse_RealPreamble(t *testing.T) {
	in := buildTrace(3, row("3.25", "needle_cuda_shared_1(int*, int*, int, int, int, int)"))
	samples, err := Parse(strings.NewReader(in), Options{Suite: "cuda", Benchmark: "nw"})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "needle_cuda_shared_1", samples[0].Kernel)
	assert.Equal(t, 3.25, samples[0].Time)
}

func TestParse_ConvertsUnits(t *testing.T) {
	in := strings.Replace(buildTrace(3, row("1.5", "k(int)")), traceUnits, `s,ms,,,,,,,,,,`, 1)
	samples, err := Parse(strings.NewReader(in), Options{Suite: "cuda", Benchmark: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1500.0, samples[0].Time)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(buildTrace(3)), Options{Suite: "cuda", Benchmark: "bfs"})
	assert.ErrorIs(t, err, ErrEmptyTrace)

	_, err = Parse(strings.NewReader("==1== No kernels were profiled.\n"), Options{})
	assert.ErrorIs(t, err, ErrEmptyTrace)
}

func TestParse_Malformed(t *testing.T) {
	in := "==1== x\n\"Start\",\"Kernel\"\ns,\n0.1,foo\n"
	_, err := Parse(strings.NewReader(in), Options{})
	assert.ErrorIs(t, err, ErrMalformedTrace)

	_, err = Parse(strings.NewReader(buildTrace(3, row("fast", "k(int)"))), Options{})
	assert.ErrorIs(t, err, ErrMalformedTrace)
}

func TestParse_RejectsInvalidDurations(t *testing.T) {
	for _, d := range []string{"NaN", "-5"} {
		in := buildTrace(3, row("1", "k(int)"), row(d, "k(int)"))
		_, err := Parse(strings.NewReader(in), Options{Suite: "cuda", Benchmark: "b"})
		assert.ErrorIs(t, err, ErrMalformedTrace, d)
	}
}

func TestParse_Disambiguation(t *testing.T) {
	in := buildTrace(3,
		row("1", "Kernel(Node*, int*, bool*, bool*, bool*, int*, int)"),
		row("2", "Kernel2(bool*, bool*, bool*, bool*, int)"),
		row("0.5", "[CUDA memcpy DtoH]"),
		row("3", "Kernel(Node*, int*, bool*, bool*, bool*, int*, int)"),
		row("4", "Kernel2(bool*, bool*, bool*, bool*, int)"),
		row("5", "other(int)"),
	)

	samples, err := Parse(strings.NewReader(in), Options{Suite: "julia", Benchmark: "bfs"})
	require.NoError(t, err)

	names := lo.Map(samples, func(s sample.Sample, _ int) string { return s.Kernel })
	assert.Equal(t, []string{"Kernel_1", "Kernel2_2", "Kernel_3", "Kernel2_4", "other"}, names)
	assert.Len(t, lo.Uniq(names), len(names))

	// The table only applies to the benchmark it names.
	samples, err = Parse(strings.NewReader(in), Options{Suite: "julia", Benchmark: "nw"})
	require.NoError(t, err)
	assert.Equal(t, "Kernel", samples[0].Kernel)
}

func TestParse_CustomBlacklist(t *testing.T) {
	in := buildTrace(3, row("1", "lud_internal(float*, int, int)"), row("2", "lud_internal(float*, int, int)"))
	samples, err := Parse(strings.NewReader(in), Options{
		Suite:     "cuda",
		Benchmark: "lud",
		Blacklist: Blacklist{"lud": {"lud_internal"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "lud_internal_1", samples[0].Kernel)
	assert.Equal(t, "lud_internal_2", samples[1].Kernel)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvprof.csv.1")
	require.NoError(t, os.WriteFile(path, []byte(buildTrace(3, row("7", "k(int)"))), 0o644))

	samples, err := ParseFile(path, Options{Suite: "cuda", Benchmark: "b"})
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)
}
