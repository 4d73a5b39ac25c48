package sse

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
)

// Event represents an SSE event with a type and payload
type Event struct {
	Type    string
	Payload []byte
}

// Hub fans visit events out to live dashboard subscribers. Slow subscribers
// miss events rather than block publishers.
type Hub struct {
	mu         sync.Mutex
	clients    map[chan Event]struct{}
	closed     bool
	bufferSize int
	onDrop     func()
	dropped    atomic.Uint64
}

type Option func(*Hub)

// WithBufferSize sets the per-subscriber channel buffer (default 16).
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithDropHandler registers a callback invoked for every event a full
// subscriber misses.
func WithDropHandler(f func()) Option {
	return func(h *Hub) { h.onDrop = f }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{clients: make(map[chan Event]struct{}), bufferSize: 16}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Subscribe returns a channel for events and a cleanup function. The cleanup
// may be called more than once. After Close the channel is already closed.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufferSize)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		})
	}
}

// Publish encodes v as JSON and sends it as a named event.
func (h *Hub) Publish(eventType string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	h.BroadcastEvent(eventType, buf)
	return nil
}

// BroadcastEvent sends a named event to all subscribers
func (h *Hub) BroadcastEvent(eventType string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- Event{Type: eventType, Payload: payload}:
		default:
			h.dropped.Add(1)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// ClientCount returns the number of live subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// DroppedTotal returns how many events full subscribers have missed.
func (h *Hub) DroppedTotal() uint64 {
	return h.dropped.Load()
}

// Close disconnects every subscriber and returns how many there were. It is
// idempotent.
func (h *Hub) Close() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	h.closed = true
	n := len(h.clients)
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
	return n
}
