package trace

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemangle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wrapper_saxpy_42 (args)", "saxpy"},
		{"wrapper_calc_dist_7 (CuDeviceArray<Float32, 1>, Int64)", "calc_dist"},
		{"saxpy_native(int*, int)", "saxpy_native"},
		{"bpnn_layerforward_CUDA(float*, float*, float*, float*, int, int)", "bpnn_layerforward_CUDA"},
		{"ptxcall_anonymous23", "ptxcall_anonymous23"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Demangle(tt.in, DefaultRules))
		})
	}
}

func TestDemangle_FirstMatchWins(t *testing.T) {
	// Matches both rules; the wrapper rule is listed first.
	assert.Equal(t, "foo", Demangle("wrapper_foo_1(int)", DefaultRules))

	rules := []Rule{
		{Name: "upper", Pattern: regexp.MustCompile(`^([A-Z]+)`), Group: 1},
		DefaultRules[1],
	}
	assert.Equal(t, "ABC", Demangle("ABCdef(int)", rules))
}
