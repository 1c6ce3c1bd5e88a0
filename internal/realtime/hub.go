// Package realtime fans progress events (achievement unlocks, level-ups) out
// to per-user websocket subscribers.
package realtime

import (
	"sync"
	"time"
)

// Event types published by the progress engine.
const (
	EventAchievementUnlocked = "achievement_unlocked"
	EventLevelUp             = "level_up"
)

// subscriberBuffer bounds each subscriber channel. A subscriber that falls
// this far behind starts losing events rather than blocking mutations.
const subscriberBuffer = 16

// Event is one realtime progress notification.
type Event struct {
	UserID string         `json:"user_id"`
	Type   string         `json:"type"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

// Hub routes events to per-user subscribers. Publish never blocks.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a subscriber for userID's events. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[chan Event]struct{})
	}
	h.subs[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[userID]; ok {
			if _, subscribed := set[ch]; subscribed {
				delete(set, ch)
				close(ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers evt to the user's subscribers. Full subscriber buffers are
// skipped so a slow websocket can never stall the progress pipeline.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[evt.UserID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for userID.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
