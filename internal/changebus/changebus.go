// Package changebus implements the in-process publish/subscribe fan-out of
// typed events described in spec §4.6: memory-added/updated/deleted,
// task-added/updated/deleted, settings-changed. Delivery is in publication
// order per subscriber; a subscriber that falls behind is dropped rather
// than allowed to block publishers.
package changebus

import (
	"log/slog"
	"sync"
	"time"
)

// Kind enumerates the fixed event vocabulary.
type Kind string

const (
	MemoryAdded     Kind = "memory-added"
	MemoryUpdated   Kind = "memory-updated"
	MemoryDeleted   Kind = "memory-deleted"
	TaskAdded       Kind = "task-added"
	TaskUpdated     Kind = "task-updated"
	TaskDeleted     Kind = "task-deleted"
	SettingsChanged Kind = "settings-changed"
)

// Event is the typed payload fanned out to subscribers.
type Event struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Project   string    `json:"project,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// defaultQueueDepth bounds each subscriber's backlog (spec §4.6/§5:
// "bounded queue ... dropped if they fall more than N events behind").
const defaultQueueDepth = 256

// Subscription is a handle a subscriber reads events from and closes when
// done.
type Subscription struct {
	ch     chan Event
	bus    *Bus
	id     uint64
	closed bool
	mu     sync.Mutex
}

// C returns the channel events arrive on. It is closed when the
// subscription is dropped (either explicitly via Close, or by the bus after
// a backlog overflow).
func (s *Subscription) C() <-chan Event { return s.ch }

// Close unsubscribes and releases resources. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Bus is the process-wide event fan-out. Publish is lock-free with respect
// to subscriber delivery (each subscriber's queue is independently locked);
// a slow subscriber never blocks Publish or other subscribers.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// New creates an empty Bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{logger: logger, subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new subscriber and returns its Subscription.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{ch: make(chan Event, defaultQueueDepth), bus: b, id: b.nextID}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish fans ev out to all current subscribers. A subscriber whose queue
// is full is dropped (its channel closed) and a warning logged, rather than
// blocking this call.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}
		select {
		case s.ch <- ev:
			s.mu.Unlock()
		default:
			s.mu.Unlock()
			if b.logger != nil {
				b.logger.Warn("dropping slow changebus subscriber", "kind", ev.Kind, "id", ev.ID)
			}
			s.Close()
		}
	}
}

// SubscriberCount reports the current number of live subscribers (used by
// the bridge's /api/status and tests).
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
