package event

import (
	"log/slog"
	"sync"
	"time"
)

// Type identifies a category of event.
type Type string

// Known event types.
const (
	EntityUpdated Type = "entity.updated"
	EntitySkipped Type = "entity.skipped"
	EntityFailed  Type = "entity.failed"
	RunCompleted  Type = "run.completed"
)

// Event represents something that happened during a run.
type Event struct {
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler is a function that processes an event.
type Handler func(Event)

// Bus is an in-process event bus with synchronous dispatch. Handlers run
// on the publisher's goroutine in subscription order; a panicking handler
// is logged and does not stop dispatch.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Type][]Handler
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Type][]Handler),
		logger: logger,
	}
}

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[t] = append(b.subs[t], h)
}

// Publish dispatches an event to every subscribed handler. Safe to call
// on a nil bus, which makes reporting optional for library callers.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[e.Type]))
	copy(handlers, b.subs[e.Type])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(e, h)
	}
}

func (b *Bus) dispatch(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("type", string(e.Type)),
				slog.Any("panic", r))
		}
	}()
	h(e)
}
