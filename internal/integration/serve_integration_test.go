package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/internal/config"
	"github.com/Aman-CERP/storyindex/internal/extract"
	"github.com/Aman-CERP/storyindex/internal/index"
	"github.com/Aman-CERP/storyindex/internal/server"
	"github.com/Aman-CERP/storyindex/internal/watcher"
)

// Serve Integration Tests - config file to HTTP response, with real
// extractors and the fsnotify watcher.

const buttonStories = `export default { title: 'Example/Button', tags: ['ui'] };
export const Primary = {};
export const Secondary = { name: 'Second' };
`

const buttonDocs = `import { Meta } from '@storybook/blocks';
import * as ButtonStories from './Button.stories';

<Meta of={ButtonStories} />

# Button
`

type entry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Name       string   `json:"name"`
	ImportPath string   `json:"importPath"`
	Type       string   `json:"type"`
	Tags       []string `json:"tags"`
}

type v4Index struct {
	V       int              `json:"v"`
	Entries map[string]entry `json:"entries"`
}

func write(t testing.TB, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// startProject loads the project config in root and serves it.
func startProject(t *testing.T, root string) (*server.Server, *httptest.Server) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := config.Load(root)
	require.NoError(t, err)
	specs, err := cfg.Specifiers("")
	require.NoError(t, err)
	opts, err := cfg.IndexOptions()
	require.NoError(t, err)

	gen, err := index.New(specs, extract.DefaultRegistry(), opts, logger)
	require.NoError(t, err)
	require.NoError(t, gen.Initialize(context.Background()))

	srv, err := server.New(gen, server.Options{
		DebounceWindow: 50 * time.Millisecond,
		Heartbeat:      time.Hour,
		Logger:         logger,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func fetchIndex(t *testing.T, ts *httptest.Server) v4Index {
	t.Helper()
	resp, err := http.Get(ts.URL + "/index.json")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var idx v4Index
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&idx))
	return idx
}

func TestServe_ConfigToIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a project with a story file and attached docs
	root := t.TempDir()
	write(t, root, config.ProjectFile, "stories:\n  - ./src/**/*.stories.js\n  - ./src/**/*.mdx\n")
	write(t, root, "src/Button.stories.js", buttonStories)
	write(t, root, "src/Button.mdx", buttonDocs)
	_, ts := startProject(t, root)

	// When: fetching the index over HTTP
	idx := fetchIndex(t, ts)

	// Then: stories and docs are indexed from the configured glob
	assert.Equal(t, 4, idx.V)
	require.Len(t, idx.Entries, 3)

	primary := idx.Entries["example-button--primary"]
	assert.Equal(t, "story", primary.Type)
	assert.Equal(t, "Example/Button", primary.Title)
	assert.Equal(t, "./src/Button.stories.js", primary.ImportPath)
	assert.Equal(t, "Second", idx.Entries["example-button--secondary"].Name)

	docs := idx.Entries["example-button--docs"]
	assert.Equal(t, "docs", docs.Type)
	assert.Equal(t, "./src/Button.mdx", docs.ImportPath)
	assert.Contains(t, docs.Tags, "attached-mdx")
}

func TestIndex_DefaultConfigTwoFiles(t *testing.T) {
	// Given: the default config over A.stories.js (tag story) and
	// B.stories.ts (tag autodocs)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	write(t, root, config.ProjectFile, "stories:\n  - directory: ./src\n    files: \"**/*.stories.*\"\n")
	write(t, root, "src/A.stories.js", "export default { title: 'A', tags: ['story'] };\nexport const StoryOne = {};\n")
	write(t, root, "src/B.stories.ts", "export default { title: 'B', tags: ['autodocs'] };\nexport const StoryOne = {};\n")

	cfg, err := config.Load(root)
	require.NoError(t, err)
	specs, err := cfg.Specifiers("")
	require.NoError(t, err)
	opts, err := cfg.IndexOptions()
	require.NoError(t, err)
	gen, err := index.New(specs, extract.DefaultRegistry(), opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ctx := context.Background()

	// When: building the index
	require.NoError(t, gen.Initialize(ctx))
	snap, err := gen.GetIndex(ctx)

	// Then: exactly the two stories, A before B
	require.NoError(t, err)
	assert.Equal(t, []string{"a--story-one", "b--story-one"}, snap.Order)
	b, ok := snap.Get("b--story-one")
	require.True(t, ok)
	assert.Equal(t, "./src/B.stories.ts", b.ImportPath)

	// When: B is deleted and invalidated by import path
	require.NoError(t, os.Remove(filepath.Join(root, "src", "B.stories.ts")))
	gen.Invalidate("./src/B.stories.ts", true)

	// Then: only A remains
	snap, err = gen.GetIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a--story-one"}, snap.Order)
}

func TestServe_WatchEditAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a served project watched with fsnotify
	root := t.TempDir()
	write(t, root, config.ProjectFile, "stories:\n  - ./src\n")
	write(t, root, "src/Button.stories.js", buttonStories)
	srv, ts := startProject(t, root)

	pool := watcher.NewPool(watcher.Options{}, nil)
	defer pool.Close()
	_, events, unsubscribe := srv.Hub().Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Watch(ctx, pool))
	require.Len(t, fetchIndex(t, ts).Entries, 2)

	waitInvalidated := func() {
		t.Helper()
		select {
		case ev := <-events:
			assert.Equal(t, server.EventIndexInvalidated, ev.Name)
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for invalidation")
		}
	}

	// When: a story is renamed in place
	write(t, root, "src/Button.stories.js", `export default { title: 'Example/Button' };
export const Primary = { name: 'Main' };
`)
	waitInvalidated()

	// Then: the next fetch reflects the edit
	require.Eventually(t, func() bool {
		idx := fetchIndex(t, ts)
		return len(idx.Entries) == 1 && idx.Entries["example-button--primary"].Name == "Main"
	}, 5*time.Second, 50*time.Millisecond)

	// When: the file is deleted
	require.NoError(t, os.Remove(filepath.Join(root, "src", "Button.stories.js")))
	waitInvalidated()

	// Then: its entries are gone
	require.Eventually(t, func() bool {
		return len(fetchIndex(t, ts).Entries) == 0
	}, 5*time.Second, 50*time.Millisecond)
}
