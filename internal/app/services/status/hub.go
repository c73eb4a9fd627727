// Package status fans delivery-queue snapshots out to UI observers. The
// hub is a passive sink: the uploader only ever writes to it and never
// reads back.
package status

import (
	"sync"

	"github.com/dailypulse/relay/internal/app/domain/observation"
)

// Hub broadcasts the latest status snapshot to any number of subscribers.
// Slow subscribers are never waited on; they observe the most recent
// snapshot instead of every intermediate one.
type Hub struct {
	mu     sync.Mutex
	latest observation.Status
	subs   map[chan observation.Status]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan observation.Status]struct{})}
}

// Publish records the snapshot and notifies subscribers. Fire and forget.
func (h *Hub) Publish(s observation.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = s
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
			// Replace the stale pending snapshot with the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Latest returns the most recently published snapshot.
func (h *Hub) Latest() observation.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Subscribe registers an observer. The returned cancel func must be called
// to release it.
func (h *Hub) Subscribe() (<-chan observation.Status, func()) {
	ch := make(chan observation.Status, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	ch <- h.latest
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}
