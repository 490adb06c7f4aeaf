package sse

import (
	"sync"
)

// Event is one message of the clock event feed.
type Event struct {
	ID         string
	BusinessID string
	Event      string
	Data       interface{}
}

// Hub fans feed events out to the subscribers of each business.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  32,
	}
}

// Subscribe registers a subscriber for a business and returns the event
// channel and a cleanup function that must be called exactly once.
func (h *Hub) Subscribe(businessID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)

	if h.subscribers[businessID] == nil {
		h.subscribers[businessID] = make(map[chan Event]struct{})
	}
	h.subscribers[businessID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[businessID], ch)
			close(ch)
			if len(h.subscribers[businessID]) == 0 {
				delete(h.subscribers, businessID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to every subscriber of event.BusinessID.
// Slow subscribers miss events rather than block the publisher.
// It returns the number of subscribers that received the event.
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[event.BusinessID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

// SubscriberCount returns the number of active subscribers for a business
func (h *Hub) SubscriberCount(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[businessID])
}

// TotalSubscribers returns the total number of active subscribers across all businesses
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
