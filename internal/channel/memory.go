package channel

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBus is an in-process fan-out bus used in development and tests.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	closed   bool
}

// NewMemoryBus builds an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]Handler)}
}

// Publish delivers evt to every subscriber, each on its own goroutine so a
// handler that publishes never blocks the sender.
func (b *MemoryBus) Publish(_ context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, h := range b.handlers {
		go h(context.Background(), evt)
	}
	return nil
}

// Subscribe registers handler for all future events.
func (b *MemoryBus) Subscribe(handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	id := uuid.NewString()
	b.handlers[id] = handler
	return &memorySubscription{bus: b, id: id}, nil
}

// Close drops every subscriber.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = map[string]Handler{}
	return nil
}

type memorySubscription struct {
	bus *MemoryBus
	id  string
}

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers, s.id)
	return nil
}
