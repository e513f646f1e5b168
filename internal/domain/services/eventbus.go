package services

import (
	"log/slog"
	"sync"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// EventBus fans lifecycle and file-change events out to subscribers.
// Delivery is synchronous and at-most-once: only handlers registered at
// publish time see an event, and there is no replay buffer.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[int]func(entities.Event)
	nextID   int
	logger   *slog.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[int]func(entities.Event)),
		logger:   logger.With("service", "eventbus"),
	}
}

// Subscribe registers a handler for all events. The returned function
// removes the subscription; it is safe to call more than once.
func (b *EventBus) Subscribe(handler func(entities.Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers the event to every current subscriber in turn. A
// panicking handler is recovered and logged so it cannot break the
// publisher or starve other subscribers.
func (b *EventBus) Publish(event entities.Event) {
	b.mu.RLock()
	handlers := make([]func(entities.Event), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, event)
	}
}

func (b *EventBus) deliver(handler func(entities.Event), event entities.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("event_type", string(event.Type)),
				slog.Any("panic", r),
			)
		}
	}()
	handler(event)
}
