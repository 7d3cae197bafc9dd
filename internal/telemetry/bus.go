package telemetry

import (
	"log"
	"sync"
	"time"
)

// #region bus

// Subscriber receives every emitted event. Subscribers must not block.
type Subscriber func(Event)

// Bus fans events out to subscribers. Emit never fails and never panics;
// a broken subscriber is logged and skipped so telemetry cannot take the
// engine down.
type Bus struct {
	mu          sync.Mutex
	subscribers []Subscriber
	counts      map[EventType]int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{counts: make(map[EventType]int)}
}

// Subscribe registers a subscriber for all future events.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
}

// #endregion bus

// #region emit

// Emit delivers the event to every subscriber.
func (b *Bus) Emit(e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.counts[e.Type]++
	b.mu.Unlock()

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("telemetry subscriber panic on %s: %v", e.Type, r)
				}
			}()
			s(e)
		}()
	}
}

// Counts returns a copy of per-type emission counts.
func (b *Bus) Counts() map[EventType]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[EventType]int, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// #endregion emit
