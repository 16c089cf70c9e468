package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rustyeddy/feedrouter/feed"
)

// Hub fans routed samples out to subscribers. Delivery is best effort: a
// subscriber that stops draining loses samples rather than stalling the
// router's emit path.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]chan feed.Sample
	buffer int
	closed bool

	dropped atomic.Uint64
	log     *slog.Logger
}

func NewHub(buffer int, log *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]chan feed.Sample),
		buffer: buffer,
		log:    log.With("component", "broadcast"),
	}
}

// Subscribe registers a consumer and returns its ID and channel. A buffer of
// zero or less takes the hub default. The channel is closed by Unsubscribe or
// when the hub shuts down.
func (h *Hub) Subscribe(buffer int) (string, <-chan feed.Sample) {
	if buffer <= 0 {
		buffer = h.buffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan feed.Sample, buffer)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers a sample to every subscriber without blocking. Channels
// are only closed under the write lock, so sending under the read lock cannot
// hit a closed channel.
func (h *Hub) Publish(s feed.Sample) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- s:
		default:
			h.dropped.Add(1)
			h.log.Warn("dropping sample due to backpressure",
				"subscriber", id, "symbol", s.Symbol)
		}
	}
}

// OnRouted implements feed.RoutedListener.
func (h *Hub) OnRouted(s feed.Sample) { h.Publish(s) }

// Dropped reports how many samples were discarded on slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close shuts the hub down and closes every subscriber channel.
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
