// Package index builds the story index: it resolves specifiers to files,
// extracts them through the indexer registry with a per-path cache, and
// assembles deterministic snapshots that are rebuilt lazily after
// invalidation.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	sierrors "github.com/Aman-CERP/storyindex/internal/errors"
	"github.com/Aman-CERP/storyindex/internal/scanner"
	"github.com/Aman-CERP/storyindex/internal/specifier"
	"github.com/Aman-CERP/storyindex/pkg/indexer"
)

// State is the generator's lifecycle state.
type State int

const (
	// StateIdle means no valid snapshot exists and nothing is computing.
	StateIdle State = iota
	// StateComputing means a build for the current generation is in flight.
	StateComputing
	// StateReady means the snapshot is valid for the current generation.
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComputing:
		return "computing"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Generator produces index snapshots. Safe for concurrent use.
type Generator struct {
	specifiers []*specifier.Specifier
	registry   *indexer.Registry
	scanner    *scanner.Scanner
	cache      *Cache
	opts       Options
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	snapshot    *Snapshot
	lastErr     error
	initialized bool

	group singleflight.Group
}

// New creates a generator. Specifiers and registry are fixed for its life.
func New(specifiers []*specifier.Specifier, registry *indexer.Registry, opts Options, logger *slog.Logger) (*Generator, error) {
	if registry == nil {
		return nil, fmt.Errorf("indexer registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.WithDefaults()

	sc := opts.Scanner
	if sc == nil {
		var err error
		sc, err = scanner.New(scanner.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	g := &Generator{
		specifiers: specifiers,
		registry:   registry,
		scanner:    sc,
		opts:       opts,
		logger:     logger,
	}
	g.cache = NewCache(g.load)
	return g, nil
}

// Initialize runs the first full scan. Per-file and structural failures are
// logged and recorded in LastError; failures reading a specifier directory
// are returned.
func (g *Generator) Initialize(ctx context.Context) error {
	g.mu.Lock()
	g.initialized = true
	g.mu.Unlock()

	_, err := g.GetIndex(ctx)
	if err == nil {
		return nil
	}

	var agg *sierrors.AggregateError
	switch {
	case errors.As(err, &agg):
		g.logger.Warn("index has failing files",
			slog.Int("failures", len(agg.Failures)),
			slog.String("error", err.Error()))
		return nil
	case errors.Is(err, sierrors.ErrDuplicateID):
		g.logger.Warn("index has duplicate ids", slog.String("error", err.Error()))
		return nil
	default:
		return err
	}
}

// GetIndex returns the snapshot for the current generation, building it if
// needed. Concurrent callers share one build. A caller whose ctx ends stops
// waiting; the shared build keeps running for the others.
func (g *Generator) GetIndex(ctx context.Context) (*Snapshot, error) {
	g.mu.Lock()
	if !g.initialized {
		g.mu.Unlock()
		return nil, sierrors.ErrNotInitialized
	}
	if g.state == StateReady && g.snapshot != nil {
		s := g.snapshot
		g.mu.Unlock()
		return s, nil
	}
	gen := g.generation
	g.state = StateComputing
	buildCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return g.compute(buildCtx, gen)
	})
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Invalidate records that path changed (or was removed) and drops the
// current snapshot. path is absolute or an import path relative to the
// project root. It never waits for an in-flight build.
func (g *Generator) Invalidate(path string, removed bool) {
	path = g.absPath(path)
	g.cache.Invalidate(path, removed)
	if filepath.Base(path) == ".gitignore" {
		g.scanner.InvalidateGitignoreCache()
	}

	g.mu.Lock()
	g.generation++
	g.snapshot = nil
	g.lastErr = nil
	g.state = StateIdle
	g.mu.Unlock()
}

// State returns the current state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Current returns the snapshot for the current generation without building
// one. It is nil unless the generator is ready.
func (g *Generator) Current() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot
}

// Generation returns the invalidation counter.
func (g *Generator) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

// LastError returns the failure of the last build for the current
// generation, if any.
func (g *Generator) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Specifiers returns the normalized specifiers.
func (g *Generator) Specifiers() []*specifier.Specifier {
	return g.specifiers
}

// Options returns the effective options.
func (g *Generator) Options() Options {
	return g.opts
}

// CacheStats returns extraction cache counters.
func (g *Generator) CacheStats() CacheStats {
	return g.cache.Stats()
}

// Covers reports whether path is matched by any specifier.
func (g *Generator) Covers(path string) bool {
	return g.specifierFor(path) != nil
}

// Watches reports whether path lies under any specifier directory.
func (g *Generator) Watches(path string) bool {
	for _, s := range g.specifiers {
		if s.Contains(path) {
			return true
		}
	}
	return false
}

// absPath resolves an import path against the specifiers' working
// directory. Cache records are keyed by absolute path.
func (g *Generator) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if len(g.specifiers) > 0 {
		return filepath.Join(g.specifiers[0].WorkingDir, filepath.FromSlash(path))
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// specifierFor returns the first specifier matching the absolute path.
func (g *Generator) specifierFor(path string) *specifier.Specifier {
	for _, s := range g.specifiers {
		if s.MatchAbsolute(path) {
			return s
		}
	}
	return nil
}

// load is the cache's extraction function.
func (g *Generator) load(ctx context.Context, path string) ([]indexer.IndexInput, error) {
	ix, ok := g.registry.Resolve(path)
	if !ok {
		return nil, fmt.Errorf("no matching indexer found for %s", path)
	}
	spec := g.specifierFor(path)
	if spec == nil {
		return nil, fmt.Errorf("%s is not covered by any stories entry", path)
	}
	importPath := spec.ImportPath(path)
	return ix.Extract(ctx, path, indexer.Options{
		ImportPath: importPath,
		MakeTitle:  spec.MakeTitle(importPath),
	})
}

// compute builds the snapshot for generation gen and promotes it when gen
// is still current.
func (g *Generator) compute(ctx context.Context, gen uint64) (*Snapshot, error) {
	start := time.Now()
	snap, err := g.build(ctx, gen)

	g.mu.Lock()
	if g.generation == gen {
		if err != nil {
			g.state = StateIdle
			g.lastErr = err
		} else {
			g.state = StateReady
			g.snapshot = snap
			g.lastErr = nil
		}
	}
	g.mu.Unlock()

	if err != nil {
		g.logger.Debug("index build failed",
			slog.Uint64("generation", gen),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}
	g.logger.Debug("index built",
		slog.Uint64("generation", gen),
		slog.Int("entries", snap.Len()),
		slog.Duration("duration", time.Since(start)))
	return snap, nil
}

func (g *Generator) build(ctx context.Context, gen uint64) (*Snapshot, error) {
	// Scan every specifier; a path matched twice belongs to the first.
	var results []fileResult
	keep := make(map[string]struct{})
	for i, spec := range g.specifiers {
		files, err := g.scanner.Resolve(ctx, spec)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, dup := keep[f.AbsPath]; dup {
				continue
			}
			keep[f.AbsPath] = struct{}{}
			results = append(results, fileResult{spec: i, file: f})
		}
	}
	g.cache.Retain(keep)

	failures := make([]*sierrors.Failure, len(results))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i := range results {
		r := &results[i]
		ix, ok := g.registry.Resolve(r.file.AbsPath)
		if !ok {
			failures[i] = &sierrors.Failure{
				Path:    r.file.ImportPath,
				Message: "no matching indexer found",
				Code:    sierrors.ErrCodeNoIndexer,
			}
			continue
		}
		r.ix = ix
		if ix.RequiresFullStore() && !g.opts.StoryStoreV7 {
			f := sierrors.VersionCompatibilityFailure(r.file.ImportPath)
			failures[i] = &f
			continue
		}
		eg.Go(func() error {
			inputs, err := g.cache.Get(egCtx, r.file.AbsPath)
			if err != nil {
				failures[i] = &sierrors.Failure{
					Path:    r.file.ImportPath,
					Message: failureMessage(err),
					Code:    sierrors.ErrCodeExtractionFailed,
				}
				return nil
			}
			r.inputs = inputs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var collected []sierrors.Failure
	for _, f := range failures {
		if f != nil {
			collected = append(collected, *f)
		}
	}
	if agg := sierrors.NewAggregateError(collected); agg != nil {
		return nil, agg
	}

	a := &assembler{specs: g.specifiers, docs: g.opts.Docs}
	entries := a.assemble(results)
	if agg := sierrors.NewAggregateError(a.failures); agg != nil {
		return nil, agg
	}

	owners := make(map[string]string, len(entries))
	for _, e := range entries {
		if first, dup := owners[e.ID]; dup {
			return nil, sierrors.DuplicateIDError(e.ID, first, e.ImportPath)
		}
		owners[e.ID] = e.ImportPath
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Title < entries[j].Title
	})
	return NewSnapshot(entries, gen), nil
}

// failureMessage strips the code prefix from structured errors.
func failureMessage(err error) string {
	var e *sierrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
