package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/storyindex/internal/gitignore"
	"github.com/Aman-CERP/storyindex/internal/scanner"
)

// HybridWatcher implements the Watcher interface using fsnotify as the primary
// watching mechanism with polling as a fallback.
type HybridWatcher struct {
	fsWatcher     *fsnotify.Watcher
	pollWatcher   *PollingWatcher
	useFsnotify   bool
	ignores       map[string]*gitignore.Matcher
	events        chan FileEvent
	errors        chan error
	stopCh        chan struct{}
	ready         chan struct{}
	roots         []string
	opts          Options
	logger        *slog.Logger
	mu            sync.RWMutex
	stopped       bool
	droppedEvents atomic.Uint64
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a new hybrid watcher with the given options.
// Attempts to use fsnotify first, falls back to polling if it fails.
func NewHybridWatcher(opts Options, logger *slog.Logger) (*HybridWatcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	h := &HybridWatcher{
		ignores: make(map[string]*gitignore.Matcher),
		events:  make(chan FileEvent, opts.EventBufferSize),
		errors:  make(chan error, 10),
		stopCh:  make(chan struct{}),
		ready:   make(chan struct{}),
		opts:    opts,
		logger:  logger,
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
			h.useFsnotify = true
		} else {
			logger.Warn("fsnotify unavailable, falling back to polling",
				slog.String("error", err.Error()))
		}
	}
	if !h.useFsnotify {
		h.pollWatcher = NewPollingWatcher(opts.PollInterval, h.skipDir)
	}

	return h, nil
}

// NormalizeRoots returns the absolute, cleaned and sorted form of dirs with
// duplicates and roots nested inside other roots removed.
func NormalizeRoots(dirs []string) ([]string, error) {
	abs := make([]string, 0, len(dirs))
	for _, d := range dirs {
		a, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolve absolute path: %w", err)
		}
		abs = append(abs, filepath.Clean(a))
	}
	slices.Sort(abs)
	abs = slices.Compact(abs)

	roots := abs[:0]
	for _, a := range abs {
		if len(roots) > 0 && within(roots[len(roots)-1], a) {
			continue
		}
		roots = append(roots, a)
	}
	return roots, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// Start begins watching the given roots.
func (h *HybridWatcher) Start(ctx context.Context, roots ...string) error {
	normalized, err := NormalizeRoots(roots)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.roots = normalized
	h.mu.Unlock()

	h.loadGitignore()

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

// Ready is closed once the initial watches are in place.
func (h *HybridWatcher) Ready() <-chan struct{} {
	return h.ready
}

// startFsnotify starts the fsnotify-based watcher.
func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	for _, root := range h.roots {
		if err := h.addRecursive(root); err != nil {
			_ = h.Stop()
			close(h.ready)
			return fmt.Errorf("add directories to watcher: %w", err)
		}
	}
	close(h.ready)

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

// startPolling starts the polling-based watcher.
func (h *HybridWatcher) startPolling(ctx context.Context) error {
	go func() {
		<-h.pollWatcher.Ready()
		close(h.ready)
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.pollWatcher.Events():
				if !ok {
					return
				}
				h.dispatch(event)
			case err, ok := <-h.pollWatcher.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.pollWatcher.Start(ctx, h.roots...)
}

// handleFsnotifyEvent converts fsnotify events into FileEvents.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir && !h.skipDir(event.Name) {
			// Files created inside the new directory before the watch
			// lands are picked up by the rescan this event triggers.
			if err := h.addRecursive(event.Name); err != nil {
				h.emitError(err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// chmod
		return
	}

	h.dispatch(FileEvent{
		Path:      event.Name,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// dispatch filters an event and forwards it.
func (h *HybridWatcher) dispatch(event FileEvent) {
	if h.shouldIgnore(event.Path, event.IsDir) {
		return
	}

	if filepath.Base(event.Path) == ".gitignore" {
		h.loadGitignore()
		event.Operation = OpGitignoreChange
		event.IsDir = false
	}

	h.emitEvent(event)
}

// addRecursive adds all directories under root to the fsnotify watcher.
func (h *HybridWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				h.logger.Warn("watch root does not exist", slog.String("path", root))
				return filepath.SkipDir
			}
			return nil // Skip files we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && h.skipDir(path) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

// rootFor returns the watched root containing path and the slash-separated
// path relative to it.
func (h *HybridWatcher) rootFor(path string) (string, string, bool) {
	for _, root := range h.roots {
		if within(root, path) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return "", "", false
			}
			return root, filepath.ToSlash(rel), true
		}
	}
	return "", "", false
}

// skipDir reports whether a directory is never watched.
func (h *HybridWatcher) skipDir(absPath string) bool {
	name := filepath.Base(absPath)
	if scanner.IsExcludedDir(name) || slices.Contains(h.opts.IgnoreDirs, name) {
		return true
	}
	return h.shouldIgnore(absPath, true)
}

// shouldIgnore returns true if the path should be ignored.
func (h *HybridWatcher) shouldIgnore(absPath string, isDir bool) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	root, rel, ok := h.rootFor(absPath)
	if !ok || rel == "." {
		return true
	}

	for _, part := range strings.Split(rel, "/") {
		if scanner.IsExcludedDir(part) || slices.Contains(h.opts.IgnoreDirs, part) {
			return true
		}
	}

	if m := h.ignores[root]; m != nil {
		return m.Match(rel, isDir)
	}
	return false
}

// loadGitignore loads .gitignore patterns from each root and its subdirectories.
func (h *HybridWatcher) loadGitignore() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, root := range h.roots {
		m := gitignore.New()
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && scanner.IsExcludedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ".gitignore" {
				return nil
			}
			base, _ := filepath.Rel(root, filepath.Dir(path))
			if base == "." {
				base = ""
			}
			if err := m.AddFromFile(path, filepath.ToSlash(base)); err != nil {
				h.logger.Warn("failed to read .gitignore",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
			return nil
		})
		h.ignores[root] = m
	}
}

// emitEvent sends an event to the output channel.
func (h *HybridWatcher) emitEvent(event FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.events <- event:
	default:
		count := h.droppedEvents.Add(1)
		h.logger.Warn("event buffer full, dropping event",
			slog.String("path", event.Path),
			slog.Uint64("total_dropped", count),
		)
	}
}

// DroppedEvents returns the number of events dropped due to buffer overflow.
func (h *HybridWatcher) DroppedEvents() uint64 {
	return h.droppedEvents.Load()
}

// emitError sends an error to the error channel.
func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}

	h.stopped = true
	close(h.stopCh)

	if h.useFsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of file events.
func (h *HybridWatcher) Events() <-chan FileEvent {
	return h.events
}

// Errors returns the channel of errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// IsHealthy returns true if the watcher is running and hasn't stopped.
func (h *HybridWatcher) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.stopped
}

// WatcherType returns the type of watcher being used ("fsnotify" or "polling").
func (h *HybridWatcher) WatcherType() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// Roots returns the normalized roots being watched.
func (h *HybridWatcher) Roots() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.roots)
}
