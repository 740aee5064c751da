// Package backends constructs a messaging.Client from configuration so
// every service shares one broker selection path.
package backends

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/callflow-systems/callflow-stack/common/messaging"
	"github.com/callflow-systems/callflow-stack/common/messaging/amqp"
	"github.com/callflow-systems/callflow-stack/common/messaging/memory"
	"github.com/callflow-systems/callflow-stack/common/messaging/nats"
)

// Config selects and parameterizes a broker backend.
type Config struct {
	// Backend is "amqp", "nats" or "memory".
	Backend string `mapstructure:"backend"`

	// URL is the broker URL; unused by the memory backend.
	URL string `mapstructure:"url"`

	// Name identifies the client to the broker.
	Name string `mapstructure:"name"`

	// ConnectAttempts bounds the AMQP dial retry loop.
	ConnectAttempts int `mapstructure:"connect_attempts"`

	// ConnectDelay is the initial delay between AMQP dial attempts.
	ConnectDelay time.Duration `mapstructure:"connect_delay"`
}

// New builds a disconnected client for the configured backend.
func New(cfg Config, logger *slog.Logger) (messaging.Client, error) {
	switch cfg.Backend {
	case "amqp", "rabbitmq":
		acfg := amqp.DefaultConfig()
		if cfg.URL != "" {
			acfg.URL = cfg.URL
		}
		if cfg.Name != "" {
			acfg.Name = cfg.Name
		}
		if cfg.ConnectAttempts > 0 {
			acfg.ConnectAttempts = cfg.ConnectAttempts
		}
		if cfg.ConnectDelay > 0 {
			acfg.ConnectDelay = cfg.ConnectDelay
		}
		return amqp.New(acfg, logger), nil
	case "nats":
		ncfg := nats.DefaultConfig()
		if cfg.URL != "" {
			ncfg.URL = cfg.URL
		}
		if cfg.Name != "" {
			ncfg.Name = cfg.Name
		}
		return nats.New(ncfg, logger), nil
	case "memory", "":
		return memory.New(logger), nil
	default:
		return nil, fmt.Errorf("unsupported message broker backend %q", cfg.Backend)
	}
}
