package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// EventIndexInvalidated is sent when the index changed and must be refetched.
const EventIndexInvalidated = "INDEX_INVALIDATED"

// Event is one server-sent event.
type Event struct {
	Name string
	Data string
}

// Hub fans events out to SSE subscribers. Each subscriber has a bounded
// buffer; events for a full subscriber are dropped.
type Hub struct {
	buffer int
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]chan Event
	closed bool

	dropped atomic.Uint64
}

// NewHub creates a hub with per-subscriber buffers of size buffer (min 1).
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		buffer: buffer,
		logger: logger,
		subs:   make(map[string]chan Event),
	}
}

// Subscribe registers a subscriber. The channel is closed by cancel or Close.
func (h *Hub) Subscribe() (id string, events <-chan Event, cancel func()) {
	id = uuid.NewString()
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	h.subs[id] = ch
	h.mu.Unlock()

	h.logger.Debug("sse subscriber added", slog.String("id", id))
	return id, ch, func() { h.remove(id) }
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
		h.logger.Debug("sse subscriber removed", slog.String("id", id))
	}
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			h.logger.Debug("sse subscriber full, event dropped",
				slog.String("id", id),
				slog.String("event", ev.Name))
		}
	}
}

// Invalidated publishes EventIndexInvalidated.
func (h *Hub) Invalidated() {
	h.Publish(Event{Name: EventIndexInvalidated})
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the number of events dropped for full subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
