// Package bus implements the process-wide event bus described in the
// consultation core: a topic-to-subscribers mapping with synchronous,
// registration-ordered fan-out. It is adapted from the runtime's own hook
// bus, generalized from a single flat subscriber list (dispatched by type
// switch) to per-topic subscriber lists, since the core publishes to named
// topics rather than a closed set of event structs.
package bus

import (
	"context"
	"sync"
)

type (
	// Event is the payload delivered to subscribers. Concrete lifecycle
	// events (see events.go) all carry at least a ConsultationID.
	Event interface {
		// Topic returns the topic this event was published under.
		Topic() Topic
		// ConsultationID returns the consultation this event belongs to.
		ConsultationID() string
	}

	// Handler reacts to a single published event. Handlers must not panic;
	// Publish does not recover from subscriber panics.
	Handler func(ctx context.Context, event Event)

	// Subscription represents an active registration. Close unregisters the
	// handler; it is safe to call multiple times.
	Subscription interface {
		Close()
	}

	// Bus is the in-process topic->subscribers dispatcher.
	Bus interface {
		// Publish delivers event to every handler currently subscribed to
		// event.Topic(), in registration order, on the caller's goroutine.
		Publish(ctx context.Context, event Event)
		// Subscribe registers handler for topic and returns a Subscription
		// that can be closed to unregister it.
		Subscribe(topic Topic, handler Handler) Subscription
	}

	bus struct {
		mu   sync.RWMutex
		subs map[Topic][]*subscription
	}

	subscription struct {
		bus     *bus
		topic   Topic
		handler Handler
		once    sync.Once
	}
)

var (
	instance     Bus
	instanceOnce sync.Once
)

// Instance returns the process-wide Event Bus singleton, constructing it
// lazily on first use. The bus is never destroyed; it lives for the life of
// the process, per the lifecycle the core specifies.
func Instance() Bus {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New constructs a standalone Bus. Most callers should use Instance(); New is
// exposed for tests that want isolation from the process-wide singleton.
func New() Bus {
	return &bus{subs: make(map[Topic][]*subscription)}
}

// Publish delivers event to every subscriber of event.Topic() in registration
// order. A snapshot of subscribers is taken before iteration begins, so
// registrations/unregistrations triggered by a handler do not affect the
// delivery already in progress.
func (b *bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[event.Topic()]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.handler(ctx, event)
	}
}

// Subscribe registers handler under topic and returns a closeable handle.
func (b *bus) Subscribe(topic Topic, handler Handler) Subscription {
	s := &subscription{bus: b, topic: topic, handler: handler}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	return s
}

// Close unregisters the subscription. Idempotent: a second Close is a no-op.
func (s *subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		list := s.bus.subs[s.topic]
		for i, cand := range list {
			if cand == s {
				s.bus.subs[s.topic] = append(list[:i], list[i+1:]...)
				break
			}
		}
	})
}
