package index

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/storyindex/internal/watcher"
)

// Coordinator turns file events into generator invalidations. Events are
// filtered against the specifiers, grouped by a Coalescer and announced to
// subscribers once per settled window.
type Coordinator struct {
	gen       *Generator
	coalescer *watcher.Coalescer
	logger    *slog.Logger

	mu          sync.Mutex
	subscribers map[uint64]func()
	nextID      uint64
	handle      *watcher.Handle
}

// NewCoordinator creates a coordinator for gen. A non-positive window uses
// watcher.DefaultCoalesceWindow.
func NewCoordinator(gen *Generator, window time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		gen:         gen,
		logger:      logger,
		subscribers: make(map[uint64]func()),
	}
	c.coalescer = watcher.NewCoalescer(window, gen.Invalidate, c.broadcast)
	return c
}

// HandleEvent routes one file event. Events outside every specifier
// directory are dropped. Directory events and .gitignore changes force a
// rescan; file events count only for files a specifier matches.
func (c *Coordinator) HandleEvent(ev watcher.FileEvent) {
	if !c.gen.Watches(ev.Path) {
		return
	}

	switch {
	case ev.Operation == watcher.OpGitignoreChange:
		c.coalescer.OnChange(ev.Path, false)
	case ev.IsDir:
		c.coalescer.OnChange(ev.Path, ev.Operation.Removed())
	case c.gen.Covers(ev.Path):
		c.coalescer.OnChange(ev.Path, ev.Operation.Removed())
	case ev.Operation.Removed():
		// A removed directory arrives without IsDir since it can no longer
		// be stat'ed; its cached files are dropped by the rescan.
		c.coalescer.OnChange(ev.Path, true)
	default:
		return
	}

	c.logger.Debug("change queued",
		slog.String("path", ev.Path),
		slog.String("op", ev.Operation.String()))
}

// HandleEvents routes a batch of events.
func (c *Coordinator) HandleEvents(events []watcher.FileEvent) {
	for _, ev := range events {
		c.HandleEvent(ev)
	}
}

// Subscribe registers fn to be called after each settled window. The
// returned function removes the subscription.
func (c *Coordinator) Subscribe(fn func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subscribers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Watch acquires a pooled watcher for every specifier directory and routes
// its events through HandleEvent until Close.
func (c *Coordinator) Watch(pool *watcher.Pool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		return nil
	}

	dirs := make([]string, 0, len(c.gen.Specifiers()))
	for _, s := range c.gen.Specifiers() {
		dirs = append(dirs, s.AbsoluteDirectory())
	}

	h, err := pool.Acquire(dirs, c.HandleEvent)
	if err != nil {
		return fmt.Errorf("watch specifier directories: %w", err)
	}
	c.handle = h
	return nil
}

// WatcherType reports "fsnotify" or "polling" while watching, "off" otherwise.
func (c *Coordinator) WatcherType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return "off"
	}
	return c.handle.WatcherType()
}

// Flush delivers queued changes immediately.
func (c *Coordinator) Flush() {
	c.coalescer.Flush()
}

// Close releases the watcher and discards queued changes.
func (c *Coordinator) Close() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.mu.Unlock()

	if h != nil {
		h.Release()
	}
	c.coalescer.Stop()
}

func (c *Coordinator) broadcast() {
	c.mu.Lock()
	subs := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.logger.Debug("index invalidated",
		slog.Uint64("generation", c.gen.Generation()),
		slog.Int("subscribers", len(subs)))

	for _, fn := range subs {
		fn()
	}
}
