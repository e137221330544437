package watcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	paths    []string
	removed  map[string]bool
	notified atomic.Int32
}

func newRecorder() *recorder {
	return &recorder{removed: make(map[string]bool)}
}

func (r *recorder) invalidate(path string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.removed[path] = removed
}

func (r *recorder) notify() { r.notified.Add(1) }

func (r *recorder) snapshot() ([]string, map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make(map[string]bool, len(r.removed))
	for k, v := range r.removed {
		removed[k] = v
	}
	return append([]string(nil), r.paths...), removed
}

func TestCoalescer_BurstProducesOneNotification(t *testing.T) {
	// Given: a coalescer with a 50ms window
	rec := newRecorder()
	c := NewCoalescer(50*time.Millisecond, rec.invalidate, rec.notify)
	defer c.Stop()

	// When: five changes arrive inside the window
	for _, p := range []string{"/a", "/b", "/a", "/c", "/b"} {
		c.OnChange(p, false)
	}

	// Then: exactly one notification follows, after every path was invalidated
	require.Eventually(t, func() bool { return rec.notified.Load() == 1 }, time.Second, 5*time.Millisecond)
	paths, _ := rec.snapshot()
	assert.Equal(t, []string{"/a", "/b", "/c"}, paths)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int32(1), rec.notified.Load())

	// When: a sixth change arrives after the window closed
	c.OnChange("/d", false)

	// Then: a second notification follows
	require.Eventually(t, func() bool { return rec.notified.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCoalescer_LastRemovedFlagWins(t *testing.T) {
	// Given: a coalescer
	rec := newRecorder()
	c := NewCoalescer(time.Hour, rec.invalidate, rec.notify)

	// When: a path is changed, removed, then recreated within one window
	c.OnChange("/x", false)
	c.OnChange("/x", true)
	c.OnChange("/y", false)
	c.OnChange("/y", true)
	c.Flush()

	// Then: each path is invalidated once with its latest flag
	paths, removed := rec.snapshot()
	assert.Equal(t, []string{"/x", "/y"}, paths)
	assert.True(t, removed["/x"])
	assert.True(t, removed["/y"])
	assert.Equal(t, int32(1), rec.notified.Load())
}

func TestCoalescer_WindowIsNotExtended(t *testing.T) {
	// Given: a coalescer with a 60ms window
	rec := newRecorder()
	c := NewCoalescer(60*time.Millisecond, rec.invalidate, rec.notify)
	defer c.Stop()

	// When: changes keep arriving every 10ms for 300ms
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		c.OnChange("/busy", false)
		time.Sleep(10 * time.Millisecond)
	}

	// Then: notifications were delivered while the changes continued
	assert.GreaterOrEqual(t, rec.notified.Load(), int32(2))
}

func TestCoalescer_FlushWithNothingPending(t *testing.T) {
	// Given: an idle coalescer
	rec := newRecorder()
	c := NewCoalescer(0, rec.invalidate, rec.notify)

	// When: flushing
	c.Flush()

	// Then: nothing is delivered
	assert.Equal(t, int32(0), rec.notified.Load())
	assert.Equal(t, 0, c.Pending())
}

func TestCoalescer_StopDiscardsPending(t *testing.T) {
	// Given: a coalescer with pending changes
	rec := newRecorder()
	c := NewCoalescer(20*time.Millisecond, rec.invalidate, rec.notify)
	c.OnChange("/a", false)
	require.Equal(t, 1, c.Pending())

	// When: stopping it
	c.Stop()
	c.OnChange("/b", false)

	// Then: nothing is ever delivered
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), rec.notified.Load())
	assert.Equal(t, 0, c.Pending())
}

func TestCoalescer_NilCallbacks(t *testing.T) {
	// Given: a coalescer without callbacks
	c := NewCoalescer(time.Millisecond, nil, nil)

	// When/Then: changes and flushes do not panic
	assert.NotPanics(t, func() {
		c.OnChange("/a", true)
		c.Flush()
	})
}
