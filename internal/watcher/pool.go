package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var errPoolClosed = errors.New("watcher pool: closed")

// Listener receives file events from a pooled watcher.
type Listener func(FileEvent)

// Pool shares watchers between listeners. Listeners asking for the same set
// of directories share one HybridWatcher; it is started by the first Acquire
// and stopped by the last Release.
type Pool struct {
	opts   Options
	logger *slog.Logger

	// starter launches a watcher; replaced in tests.
	starter func(key string, roots []string) (*poolEntry, error)

	mu      sync.Mutex
	entries map[string]*poolEntry
	closed  bool
}

type poolEntry struct {
	key       string
	roots     []string
	watcher   *HybridWatcher
	cancel    context.CancelFunc
	done      chan struct{}
	listeners map[uint64]Listener
	nextID    uint64
}

// Handle is one listener's claim on a pooled watcher.
type Handle struct {
	pool    *Pool
	key     string
	id      uint64
	watcher *HybridWatcher
	once    sync.Once
}

// NewPool creates an empty pool.
func NewPool(opts Options, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		opts:    opts.WithDefaults(),
		logger:  logger,
		entries: make(map[string]*poolEntry),
	}
	p.starter = p.start
	return p
}

// Acquire registers listener for changes below dirs, starting a watcher for
// the set if none is running. It returns once the watcher's initial watches
// are in place.
func (p *Pool) Acquire(dirs []string, listener Listener) (*Handle, error) {
	if listener == nil {
		return nil, fmt.Errorf("watcher pool: nil listener")
	}
	roots, err := NormalizeRoots(dirs)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("watcher pool: no directories to watch")
	}
	key := strings.Join(roots, "\x00")

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errPoolClosed
	}
	if entry, ok := p.entries[key]; ok {
		h := p.register(entry, listener)
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	// The initial recursive watch can take a while; other watchers keep
	// forwarding events and releasing meanwhile.
	started, err := p.starter(key, roots)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.stop(started)
		return nil, errPoolClosed
	}
	entry, raced := p.entries[key]
	if !raced {
		entry = started
		p.entries[key] = entry
	}
	h := p.register(entry, listener)
	p.mu.Unlock()

	if raced {
		p.stop(started)
	}
	return h, nil
}

// register adds listener to entry. Must be called with lock held.
func (p *Pool) register(entry *poolEntry, listener Listener) *Handle {
	entry.nextID++
	id := entry.nextID
	entry.listeners[id] = listener
	return &Handle{pool: p, key: entry.key, id: id, watcher: entry.watcher}
}

// start launches a watcher for roots and waits for its initial watches.
func (p *Pool) start(key string, roots []string) (*poolEntry, error) {
	w, err := NewHybridWatcher(p.opts, p.logger)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	entry := &poolEntry{
		key:       key,
		roots:     roots,
		watcher:   w,
		cancel:    cancel,
		done:      make(chan struct{}),
		listeners: make(map[uint64]Listener),
	}

	startErr := make(chan error, 1)
	go func() {
		startErr <- w.Start(ctx, roots...)
	}()

	select {
	case <-w.Ready():
	case err := <-startErr:
		cancel()
		_ = w.Stop()
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	go p.forward(entry)
	go func() {
		if err := <-startErr; err != nil && ctx.Err() == nil {
			p.logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	p.logger.Debug("watcher started",
		slog.String("type", w.WatcherType()),
		slog.Int("roots", len(roots)))
	return entry, nil
}

// forward fans events out to the entry's listeners until the watcher stops.
func (p *Pool) forward(entry *poolEntry) {
	defer close(entry.done)

	events := entry.watcher.Events()
	errs := entry.watcher.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			for _, l := range p.listenersOf(entry) {
				l(ev)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (p *Pool) listenersOf(entry *poolEntry) []Listener {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Listener, 0, len(entry.listeners))
	for _, l := range entry.listeners {
		out = append(out, l)
	}
	return out
}

// Release removes the listener. The watcher stops when no listeners remain.
// Calling Release more than once has no further effect.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.pool.release(h.key, h.id)
	})
}

// WatcherType reports the mechanism behind the handle: "fsnotify" or "polling".
func (h *Handle) WatcherType() string {
	return h.watcher.WatcherType()
}

func (p *Pool) release(key string, id uint64) {
	p.mu.Lock()
	entry, ok := p.entries[key]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(entry.listeners, id)
	if len(entry.listeners) > 0 {
		p.mu.Unlock()
		return
	}
	delete(p.entries, key)
	p.mu.Unlock()

	p.stop(entry)
}

// stop cancels the entry's watcher. Its forwarder exits once the event
// channels close.
func (p *Pool) stop(entry *poolEntry) {
	entry.cancel()
	_ = entry.watcher.Stop()
}

// Len returns the number of running watchers.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Refs returns the number of listeners sharing the watcher for dirs.
func (p *Pool) Refs(dirs []string) int {
	roots, err := NormalizeRoots(dirs)
	if err != nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[strings.Join(roots, "\x00")]; ok {
		return len(entry.listeners)
	}
	return 0
}

// Close stops every watcher regardless of outstanding handles. Later
// Acquire calls fail.
func (p *Pool) Close() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.closed = true
	p.mu.Unlock()

	for _, entry := range entries {
		p.stop(entry)
		<-entry.done
	}
}
