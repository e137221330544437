package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func busyWork() int {
	sum := 0
	for i := 0; i < 1_000_000; i++ {
		sum += i % 7
	}
	return sum
}

func TestSession_WritesAllProfiles(t *testing.T) {
	// Given: all three profiles requested
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	// When: running some work inside a session
	s, err := Start(opts)
	require.NoError(t, err)
	_ = busyWork()
	require.NoError(t, s.Stop())

	// Then: every file exists and has content
	for _, path := range []string{opts.CPU, opts.Heap, opts.Trace} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestSession_NothingRequested(t *testing.T) {
	// Given: empty options
	opts := Options{}
	assert.False(t, opts.Enabled())

	// When: starting and stopping
	s, err := Start(opts)
	require.NoError(t, err)

	// Then: stop is a no-op
	assert.NoError(t, s.Stop())
}

func TestStart_BadPath(t *testing.T) {
	// Given: a CPU profile path in a missing directory
	opts := Options{CPU: filepath.Join(t.TempDir(), "missing", "cpu.prof")}

	// When: starting
	_, err := Start(opts)

	// Then: the error names the profile
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CPU profile")
}

func TestStart_TraceFailureStopsCPU(t *testing.T) {
	// Given: a valid CPU path but an unwritable trace path
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	}

	// When: starting
	_, err := Start(opts)
	require.Error(t, err)

	// Then: CPU profiling was released and can start again
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.prof")})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}
