package feed

import (
	"sync"
	"sync/atomic"
)

// Hub fans refresh signals out to connected feed loops. Signals coalesce:
// a subscriber that has not consumed the previous one is skipped.
type Hub struct {
	subscribers map[uint64]chan struct{}
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint64]chan struct{}),
	}
}

// Subscribe registers a listener. On a closed hub the returned channel is
// already closed.
func (h *Hub) Subscribe() (uint64, <-chan struct{}) {
	id := h.nextID.Add(1)
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subscribers[id] = ch
	}
	h.mu.Unlock()

	return id, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
}

func (h *Hub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// Already pending
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes all subscriber channels, causing feed loops to exit
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
