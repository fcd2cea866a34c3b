// Package eventbus fans action outcome events out to in-process subscribers.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/approvals-hub/internal/domain/event"
)

// ErrClosed is returned when publishing to a closed bus
var ErrClosed = errors.New("event bus is closed")

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// Subscription describes one registered handler
type Subscription struct {
	Name      string
	EventType event.Type
	handler   Handler
}

// Bus routes events to registered handlers
type Bus interface {
	// Subscribe registers a named handler for an event type
	Subscribe(eventType event.Type, name string, handler Handler)

	// SubscribeOutcomes registers a handler for every item outcome type
	SubscribeOutcomes(name string, handler Handler)

	// Publish delivers the event to every handler in registration order.
	// Handler errors are logged and joined; later handlers still run.
	Publish(ctx context.Context, evt *event.Event) error

	// Close rejects further publishes
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type bus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]Subscription
	logger   Logger
	closed   atomic.Bool
}

// Option configures the bus
type Option func(*bus)

// WithLogger sets a logger for the bus
func WithLogger(logger Logger) Option {
	return func(b *bus) {
		b.logger = logger
	}
}

// New creates an event bus
func New(opts ...Option) Bus {
	b := &bus{
		handlers: make(map[event.Type][]Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Subscribe(eventType event.Type, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("handler-%d", len(b.handlers[eventType]))
	}
	b.handlers[eventType] = append(b.handlers[eventType], Subscription{
		Name:      name,
		EventType: eventType,
		handler:   handler,
	})

	if b.logger != nil {
		b.logger.Info("Handler subscribed", "event_type", eventType, "handler_name", name)
	}
}

func (b *bus) SubscribeOutcomes(name string, handler Handler) {
	for _, t := range []event.Type{
		event.TypeItemApproved,
		event.TypeItemChangesRequested,
		event.TypeItemDenied,
		event.TypeItemActionFailed,
	} {
		b.Subscribe(t, name, handler)
	}
}

func (b *bus) snapshot(eventType event.Type) []Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.handlers[eventType]
	out := make([]Subscription, len(subs))
	copy(out, subs)
	return out
}

func (b *bus) Publish(ctx context.Context, evt *event.Event) error {
	if b.closed.Load() {
		return ErrClosed
	}

	var errs []error
	for _, sub := range b.snapshot(evt.Type) {
		if err := b.safeExecute(ctx, evt, sub); err != nil {
			if b.logger != nil {
				b.logger.Error("Handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", sub.Name,
					"error", err,
				)
			}
			errs = append(errs, fmt.Errorf("handler %s: %w", sub.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (b *bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if b.logger != nil {
		b.logger.Info("Event bus closed")
	}
	return nil
}

// safeExecute runs a handler with panic recovery
func (b *bus) safeExecute(ctx context.Context, evt *event.Event, sub Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, evt)
}
