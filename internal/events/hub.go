// Package events fans out session and health changes to live subscribers.
package events

import (
	"sync"
	"time"

	"github.com/fin-processor/backend/internal/models"
)

// Type identifies an event.
type Type string

const (
	TypeSession Type = "session"
	TypeHealth  Type = "health"
)

// Event is one change notification.
type Event struct {
	Type      Type                 `json:"type"`
	SessionID string               `json:"sessionId,omitempty"`
	Health    models.ServiceHealth `json:"health,omitempty"`
	At        time.Time            `json:"at"`
}

// Hub delivers events to subscribers without ever blocking the publisher.
// A subscriber that falls behind misses events; each event only signals
// that fresh state should be fetched.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given buffer size.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends ev to every subscriber that has room.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Notify publishes a session change. It satisfies upload.Notifier.
func (h *Hub) Notify(sessionID string) {
	h.Publish(Event{Type: TypeSession, SessionID: sessionID})
}

// PublishHealth publishes a health change.
func (h *Hub) PublishHealth(health models.ServiceHealth) {
	h.Publish(Event{Type: TypeHealth, Health: health})
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
