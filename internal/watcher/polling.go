package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher watches for file changes by periodically walking the roots.
// Used as a fallback when fsnotify is not available or fails.
type PollingWatcher struct {
	interval  time.Duration
	skipDir   func(absPath string) bool
	fileState map[string]fileSnapshot
	events    chan FileEvent
	errors    chan error
	stopCh    chan struct{}
	ready     chan struct{}
	mu        sync.RWMutex
	stopped   bool
	roots     []string
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingWatcher creates a new polling watcher with the given interval.
// skipDir may be nil.
func NewPollingWatcher(interval time.Duration, skipDir func(absPath string) bool) *PollingWatcher {
	if skipDir == nil {
		skipDir = func(string) bool { return false }
	}
	return &PollingWatcher{
		interval:  interval,
		skipDir:   skipDir,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan FileEvent, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		ready:     make(chan struct{}),
	}
}

// Start records a baseline for every root and then polls until stopped.
func (p *PollingWatcher) Start(ctx context.Context, roots ...string) error {
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("resolve absolute path: %w", err)
		}
		p.roots = append(p.roots, abs)
	}

	p.mu.Lock()
	p.fileState = p.walk()
	p.mu.Unlock()
	close(p.ready)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

// Ready is closed once the baseline walk has finished.
func (p *PollingWatcher) Ready() <-chan struct{} {
	return p.ready
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// walk records the state of every entry below the roots, keyed by absolute path.
func (p *PollingWatcher) walk() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for _, root := range p.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Skip files we can't access
			}
			if path == root {
				return nil
			}
			if d.IsDir() && p.skipDir(path) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			state[path] = fileSnapshot{
				modTime: info.ModTime(),
				size:    info.Size(),
				isDir:   d.IsDir(),
			}
			return nil
		})
	}
	return state
}

// detectChanges compares current state with previous state and emits events.
func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.walk()
	now := time.Now()

	for path, snap := range current {
		prev, exists := p.fileState[path]
		switch {
		case !exists:
			p.emitEvent(FileEvent{Path: path, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			p.emitEvent(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emitEvent(FileEvent{Path: path, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.fileState = current
}

// emitEvent sends an event to the events channel.
// Must be called with lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling watcher buffer full, dropping event",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		)
	}
}
