// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan out applied search result sets to multiple listeners
// (e.g. WebSocket sessions watching a live search).
//
// Best-effort fan-out: slow listeners drop events rather than backpressure
// the search pipeline. There is no persistence or replay; the stream is
// ephemeral. If durable semantics are ever needed this package is the seam
// where a broker can be introduced behind a compatible interface.
package realtime

import (
	"sync"

	"github.com/buildsight/fieldsearch/pkg/core"
)

// Event kinds delivered over the hub.
const (
	EventResults   = "results"
	EventHeartbeat = "heartbeat"
)

// Event is the hub's envelope. Results is set for Type == "results".
type Event struct {
	Type    string          `json:"type"`
	Results *core.ResultSet `json:"results,omitempty"`
}

// Hub is an in-memory fan-out dispatcher. Each registered listener receives
// events via its own buffered channel. If a listener's buffer is full when
// an event arrives, that event is dropped for that listener only, so a
// single slow consumer never degrades delivery to the rest.
//
// The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns its id and receive channel.
// Callers must later Unregister(id) to release resources.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener with the given id and closes its channel.
// Unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// PublishResults delivers an applied result set to all listeners, best effort.
func (h *Hub) PublishResults(set *core.ResultSet) {
	h.broadcast(Event{Type: EventResults, Results: set})
}

// Heartbeat delivers a keepalive event to all listeners, best effort.
func (h *Hub) Heartbeat() {
	h.broadcast(Event{Type: EventHeartbeat})
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
