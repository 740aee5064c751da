// Package messaging provides the topic-based publish/subscribe abstraction
// every CallFlow service communicates through. It defines the client
// interfaces and the event envelope; broker backends live in the memory,
// amqp and nats sub-packages.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when Publish or Subscribe is called
	// before Connect, or after Close.
	ErrNotConnected = errors.New("messaging: not connected")

	// ErrBrokerUnavailable is returned by Connect when the broker cannot
	// be reached within the configured timeout.
	ErrBrokerUnavailable = errors.New("messaging: broker unavailable")
)

// Handler processes one delivered envelope. A handler error is caught and
// logged by the backend; it never crashes the dispatch loop and the
// delivery is not retried by the bus. Retry, if wanted, belongs in the
// handler.
type Handler func(ctx context.Context, env *Envelope) error

// Publisher publishes envelopes to named topics.
type Publisher interface {
	// Publish serializes the envelope and delivers it to every current
	// subscriber of the topic. Independent subscribers each receive a
	// full copy.
	Publish(ctx context.Context, topic string, env *Envelope) error
}

// Subscriber registers handlers for named topics.
type Subscriber interface {
	// Subscribe registers a handler invoked once per delivered envelope.
	Subscribe(topic string, handler Handler) error
}

// Client is a full bus connection. The lifecycle is
// Disconnected -> Connected -> Disconnected; Publish and Subscribe before
// Connect fail with ErrNotConnected.
type Client interface {
	Publisher
	Subscriber

	// Connect establishes the underlying transport. It is safe to call
	// once per process lifetime.
	Connect(ctx context.Context) error

	// Close releases transport resources. In-flight deliveries are
	// drained best-effort, not guaranteed.
	Close() error

	// IsConnected reports whether the client is connected to the broker.
	IsConnected() bool
}
