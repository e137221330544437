package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/storyindex/internal/specifier"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// fixtureFile is the on-disk format read by the fake indexers: either a
// list of inputs or an error message.
type fixtureFile struct {
	Inputs []indexer.IndexInput `json:"inputs,omitempty"`
	Fail   string               `json:"fail,omitempty"`
}

// fakeIndexers reads fixture files and counts extractions per path.
type fakeIndexers struct {
	mu    sync.Mutex
	calls map[string]int

	// gate, when set, blocks every extraction until closed.
	gate chan struct{}
	// started receives the path of each extraction as it begins.
	started chan string
}

func newFakeIndexers() *fakeIndexers {
	return &fakeIndexers{calls: make(map[string]int)}
}

func (f *fakeIndexers) extract(_ context.Context, path string, _ indexer.Options) ([]indexer.IndexInput, error) {
	f.mu.Lock()
	f.calls[path]++
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- path
	}
	if gate != nil {
		<-gate
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ff fixtureFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, err
	}
	if ff.Fail != "" {
		return nil, errors.New(ff.Fail)
	}
	return ff.Inputs, nil
}

func (f *fakeIndexers) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeIndexers) registry() *indexer.Registry {
	return indexer.NewRegistry(
		indexer.Func{
			ID:        "csf",
			Match:     func(p string) bool { return strings.Contains(filepath.Base(p), ".stories.") },
			ExtractFn: f.extract,
		},
		indexer.Func{
			ID:        "mdx",
			Match:     func(p string) bool { return strings.HasSuffix(p, ".mdx") },
			ExtractFn: f.extract,
			FullStore: true,
		},
	)
}

func story(title, export string, tags ...string) indexer.IndexInput {
	return indexer.IndexInput{Type: indexer.TypeStory, Title: title, ExportName: export, Tags: tags}
}

func writeFixture(t *testing.T, root, rel string, ff fixtureFile) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(ff)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeStories(t *testing.T, root, rel string, inputs ...indexer.IndexInput) string {
	t.Helper()
	return writeFixture(t, root, rel, fixtureFile{Inputs: inputs})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type genFixture struct {
	root  string
	fakes *fakeIndexers
	gen   *Generator
}

func newGenerator(t *testing.T, root string, opts Options, raws ...specifier.Raw) *genFixture {
	t.Helper()
	if len(raws) == 0 {
		raws = []specifier.Raw{{Directory: "src"}}
	}
	specs, err := specifier.NormalizeAll(raws, specifier.Context{WorkingDir: root, ConfigDir: root})
	require.NoError(t, err)

	fakes := newFakeIndexers()
	gen, err := New(specs, fakes.registry(), opts, quietLogger())
	require.NoError(t, err)
	return &genFixture{root: root, fakes: fakes, gen: gen}
}

func entryIDs(s *Snapshot) []string {
	return append([]string(nil), s.Order...)
}

func specifierRaw(dir, prefix string) specifier.Raw {
	return specifier.Raw{Directory: dir, TitlePrefix: prefix}
}
