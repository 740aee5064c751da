// Package memory provides an in-process implementation of the messaging
// interfaces. Delivery is synchronous fan-out to handlers in registration
// order, which makes it the backend of choice for tests and
// single-process deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/callflow-systems/callflow-stack/common/messaging"
)

// Bus implements messaging.Client with an owned in-memory subscription
// registry. The registry is mutex-protected since Publish and Subscribe
// may race against concurrent handler registration.
type Bus struct {
	mu        sync.RWMutex
	connected bool
	handlers  map[string][]messaging.Handler
	logger    *slog.Logger
}

// New creates a disconnected in-process bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]messaging.Handler),
		logger:   logger.With(slog.String("component", "memory-bus")),
	}
}

// Connect marks the bus as connected. Calling it again on a live bus is
// a no-op.
func (b *Bus) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

// Publish delivers the envelope synchronously to every handler
// registered for the topic, in registration order. A handler error is
// logged and does not stop delivery to later handlers.
func (b *Bus) Publish(ctx context.Context, topic string, env *messaging.Envelope) error {
	b.mu.RLock()
	if !b.connected {
		b.mu.RUnlock()
		return messaging.ErrNotConnected
	}
	handlers := make([]messaging.Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, env); err != nil {
			b.logger.Error("handler failed",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Subscribe appends the handler to the topic's registry.
func (b *Bus) Subscribe(topic string, handler messaging.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return messaging.ErrNotConnected
	}
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Close drops all subscriptions and disconnects the bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.handlers = make(map[string][]messaging.Handler)
	return nil
}

// IsConnected reports whether Connect has been called.
func (b *Bus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}
