package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ciricc/kernelbench/internal/model/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	assert.False(t, Exists(path))

	in := []sample.Sample{
		sample.NewSample("julia", "bfs", "Kernel_1", 12.25),
		sample.NewSample("julia", "bfs", "weird, \"name\"", 0.001),
	}
	require.NoError(t, Store(path, in))
	assert.True(t, Exists(path))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestRead_Format(t *testing.T) {
	out, err := Read(strings.NewReader("suite,benchmark,kernel,time\ncuda,nw,needle,3.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []sample.Sample{sample.NewSample("cuda", "nw", "needle", 3.5)}, out)
}

func TestRead_Corrupt(t *testing.T) {
	for _, in := range []string{
		"",
		"a,b,c,d\n",
		"suite,benchmark,kernel,time\ncuda,nw,needle\n",
		"suite,benchmark,kernel,time\ncuda,nw,needle,fast\n",
		"suite,benchmark,kernel,time\ncuda,nw,needle,NaN\n",
		"suite,benchmark,kernel,time\ncuda,nw,needle,-5\n",
		"suite,benchmark,kernel,time\ncuda,nw,,3.5\n",
	} {
		_, err := Read(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrCorrupt, in)
	}
}

func TestExists_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileName), 0o755))
	assert.False(t, Exists(Path(dir)))
}
