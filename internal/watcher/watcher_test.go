package watcher

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpCreate, "CREATE"},
		{OpModify, "MODIFY"},
		{OpDelete, "DELETE"},
		{OpRename, "RENAME"},
		{OpGitignoreChange, "GITIGNORE_CHANGE"},
		{Operation(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOperation_Removed(t *testing.T) {
	assert.True(t, OpDelete.Removed())
	assert.True(t, OpRename.Removed())
	assert.False(t, OpCreate.Removed())
	assert.False(t, OpModify.Removed())
	assert.False(t, OpGitignoreChange.Removed())
}

func TestOptions_WithDefaults(t *testing.T) {
	// Given: zero options
	var opts Options

	// When: applying defaults
	opts = opts.WithDefaults()

	// Then: zero values are replaced
	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.Equal(t, 1000, opts.EventBufferSize)
}

func TestNormalizeRoots(t *testing.T) {
	// Given: duplicate, nested and unsorted directories
	base := t.TempDir()
	src := filepath.Join(base, "src")
	docs := filepath.Join(base, "docs")
	nested := filepath.Join(src, "components")

	// When: normalizing
	roots, err := NormalizeRoots([]string{nested, src, docs, src + string(filepath.Separator)})

	// Then: only the outermost roots remain, sorted
	require.NoError(t, err)
	assert.Equal(t, []string{docs, src}, roots)
}

func TestNormalizeRoots_SiblingPrefixIsNotNested(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "src")
	b := filepath.Join(base, "src-legacy")

	roots, err := NormalizeRoots([]string{b, a})

	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, roots)
}
