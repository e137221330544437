package watcher

import (
	"sync"
	"time"
)

// DefaultCoalesceWindow is the delay between the first change of a burst and
// the invalidation it produces.
const DefaultCoalesceWindow = 100 * time.Millisecond

// Coalescer groups changed paths into fixed windows. The first change after
// a quiet period arms a timer; later changes inside the window join the
// pending set without extending it. When the window closes every pending
// path is passed to invalidate and notify is called once.
type Coalescer struct {
	window     time.Duration
	invalidate func(path string, removed bool)
	notify     func()

	mu      sync.Mutex
	pending map[string]bool
	order   []string
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// NewCoalescer creates a coalescer. A non-positive window uses
// DefaultCoalesceWindow. Either callback may be nil.
func NewCoalescer(window time.Duration, invalidate func(path string, removed bool), notify func()) *Coalescer {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	if invalidate == nil {
		invalidate = func(string, bool) {}
	}
	if notify == nil {
		notify = func() {}
	}
	return &Coalescer{
		window:     window,
		invalidate: invalidate,
		notify:     notify,
		pending:    make(map[string]bool),
	}
}

// OnChange records a change to path. A later call for the same path inside
// the window replaces its removed flag.
func (c *Coalescer) OnChange(path string, removed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	if _, ok := c.pending[path]; !ok {
		c.order = append(c.order, path)
	}
	c.pending[path] = removed

	if c.timer == nil {
		c.seq++
		seq := c.seq
		c.timer = time.AfterFunc(c.window, func() { c.fire(seq) })
	}
}

// Flush delivers pending changes immediately.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	paths, removed := c.take()
	c.mu.Unlock()

	c.deliver(paths, removed)
}

// Stop discards pending changes. Later changes are ignored.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.take()
}

// Pending returns the number of paths waiting for the window to close.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Coalescer) fire(seq uint64) {
	c.mu.Lock()
	if seq != c.seq || c.timer == nil {
		// superseded by Flush or Stop
		c.mu.Unlock()
		return
	}
	paths, removed := c.take()
	c.mu.Unlock()

	c.deliver(paths, removed)
}

// take empties the pending set. Must be called with lock held.
func (c *Coalescer) take() ([]string, []bool) {
	c.timer = nil
	paths := c.order
	removed := make([]bool, len(paths))
	for i, p := range paths {
		removed[i] = c.pending[p]
	}
	c.order = nil
	c.pending = make(map[string]bool)
	return paths, removed
}

func (c *Coalescer) deliver(paths []string, removed []bool) {
	if len(paths) == 0 {
		return
	}
	for i, p := range paths {
		c.invalidate(p, removed[i])
	}
	c.notify()
}
