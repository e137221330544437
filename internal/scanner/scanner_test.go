package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/specifier"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func importPaths(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ImportPath)
	}
	return out
}

func newSpec(t *testing.T, root string, raw specifier.Raw) *specifier.Specifier {
	t.Helper()
	spec, err := specifier.Normalize(raw, specifier.Context{WorkingDir: root, ConfigDir: root})
	require.NoError(t, err)
	return spec
}

func TestScanner_Resolve_SortedMatches(t *testing.T) {
	// Given: a project with stories, docs and unrelated files
	root := t.TempDir()
	writeFile(t, root, "src/B.stories.js", "")
	writeFile(t, root, "src/A.stories.js", "")
	writeFile(t, root, "src/nested/C.stories.tsx", "")
	writeFile(t, root, "src/Intro.mdx", "")
	writeFile(t, root, "src/util.js", "")
	writeFile(t, root, "other/D.stories.js", "")

	s, err := New()
	require.NoError(t, err)

	// When: resolving the default-files specifier for src
	files, err := s.Resolve(context.Background(), newSpec(t, root, specifier.Raw{Directory: "src"}))

	// Then: matching files come back sorted by import path
	require.NoError(t, err)
	assert.Equal(t, []string{
		"./src/A.stories.js",
		"./src/B.stories.js",
		"./src/Intro.mdx",
		"./src/nested/C.stories.tsx",
	}, importPaths(files))
	assert.Equal(t, filepath.Join(root, "src", "A.stories.js"), files[0].AbsPath)
}

func TestScanner_Resolve_SkipsDefaultExcludes(t *testing.T) {
	// Given: stories inside node_modules and .git
	root := t.TempDir()
	writeFile(t, root, "src/A.stories.js", "")
	writeFile(t, root, "src/node_modules/pkg/X.stories.js", "")
	writeFile(t, root, "src/.git/Y.stories.js", "")

	s, err := New()
	require.NoError(t, err)

	// When: resolving
	files, err := s.Resolve(context.Background(), newSpec(t, root, specifier.Raw{Directory: "src"}))

	// Then: excluded directories are never descended
	require.NoError(t, err)
	assert.Equal(t, []string{"./src/A.stories.js"}, importPaths(files))
}

func TestScanner_Resolve_RespectsGitignore(t *testing.T) {
	// Given: root and nested .gitignore files
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "src/.gitignore", "*.draft.mdx\n")
	writeFile(t, root, "src/A.stories.js", "")
	writeFile(t, root, "src/generated/G.stories.js", "")
	writeFile(t, root, "src/Intro.draft.mdx", "")

	s, err := New()
	require.NoError(t, err)
	spec := newSpec(t, root, specifier.Raw{Directory: "src"})

	// When: resolving with gitignore enabled
	files, err := s.Resolve(context.Background(), spec)

	// Then: ignored paths are skipped
	require.NoError(t, err)
	assert.Equal(t, []string{"./src/A.stories.js"}, importPaths(files))

	// And: disabling gitignore brings them back
	s2, err := New(WithGitignore(false))
	require.NoError(t, err)
	files, err = s2.Resolve(context.Background(), spec)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestScanner_Resolve_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/A.stories.js", "")
	writeFile(t, root, "src/legacy/B.stories.js", "")

	s, err := New(WithExcludePatterns("**/legacy/**"))
	require.NoError(t, err)

	files, err := s.Resolve(context.Background(), newSpec(t, root, specifier.Raw{Directory: "src"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"./src/A.stories.js"}, importPaths(files))
}

func TestScanner_Resolve_MissingDirectory(t *testing.T) {
	// Given: a specifier whose directory does not exist
	root := t.TempDir()
	s, err := New()
	require.NoError(t, err)

	// When: resolving
	files, err := s.Resolve(context.Background(), newSpec(t, root, specifier.Raw{Directory: "missing"}))

	// Then: no files and no error
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanner_Resolve_DirectoryIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src", "not a dir")
	s, err := New()
	require.NoError(t, err)

	_, err = s.Resolve(context.Background(), newSpec(t, root, specifier.Raw{Directory: "src"}))
	require.Error(t, err)
	assert.Equal(t, sierrors.ErrCodeWalk, sierrors.GetCode(err))
}

func TestScanner_Scan_ContextCancelled(t *testing.T) {
	// Given: a cancelled context
	root := t.TempDir()
	writeFile(t, root, "a.stories.js", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := New()
	require.NoError(t, err)

	// When: scanning
	results, err := s.Scan(ctx, &ScanOptions{RootDir: root})
	require.NoError(t, err)

	// Then: the channel closes without delivering files
	count := 0
	for r := range results {
		if r.File != nil {
			count++
		}
	}
	assert.Zero(t, count)
}

func TestIsExcludedDir(t *testing.T) {
	assert.True(t, IsExcludedDir("node_modules"))
	assert.True(t, IsExcludedDir(".git"))
	assert.False(t, IsExcludedDir("src"))
}
