// Package nats provides a NATS backend of the messaging interfaces for
// deployments that already run a NATS server. Fan-out and per-topic
// ordering come from core NATS subscriptions.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/callflow-systems/callflow-stack/common/messaging"
)

// Config holds NATS client configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "callflow-client",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Client implements messaging.Client using NATS.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	conn *nats.Conn
	subs []*nats.Subscription
}

// New creates a disconnected NATS client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "nats-bus")),
	}
}

// Connect dials the NATS server. Reconnects after transient drops are
// handled by the NATS client itself.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.IsConnected() {
		return nil
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	logger := c.logger
	conn, err := nats.Connect(c.cfg.URL,
		nats.Name(c.cfg.Name),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrBrokerUnavailable, err)
	}

	c.conn = conn
	return nil
}

// Publish serializes the envelope and publishes it on the topic.
func (c *Client) Publish(ctx context.Context, topic string, env *messaging.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || !conn.IsConnected() {
		return messaging.ErrNotConnected
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return conn.Publish(topic, body)
}

// Subscribe registers a handler for the topic. Handler errors are logged
// and never propagate into the NATS dispatch loop.
func (c *Client) Subscribe(topic string, handler messaging.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return messaging.ErrNotConnected
	}

	sub, err := c.conn.Subscribe(topic, func(msg *nats.Msg) {
		var env messaging.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			c.logger.Error("dropping malformed envelope",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			return
		}
		if err := handler(context.Background(), &env); err != nil {
			c.logger.Error("handler failed",
				slog.String("topic", topic),
				slog.String("event_type", env.EventType),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	c.subs = append(c.subs, sub)
	return nil
}

// Close drains the connection so in-flight deliveries get a best-effort
// chance to finish, then releases it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil

	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
	c.conn = nil
	return nil
}

// IsConnected reports whether the client is connected to NATS.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}
