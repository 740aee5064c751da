package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/callflow-systems/callflow-stack/admin/internal/health"
)

// Config holds all configuration for the admin service
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Services []health.Service `mapstructure:"services"`
	CallURL  string           `mapstructure:"call_url"`
	Health   HealthConfig     `mapstructure:"health"`
	Logging  LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// HealthConfig holds the health probe configuration
type HealthConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds log level and format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("call_url", "http://localhost:8081")
	v.SetDefault("health.timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("ADMIN")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Default registry covers the whole stack on localhost
	if len(cfg.Services) == 0 {
		cfg.Services = []health.Service{
			{Name: "callsvc", URL: "http://localhost:8081"},
			{Name: "leadsvc", URL: "http://localhost:8082"},
			{Name: "orchestrator", URL: "http://localhost:8083"},
			{Name: "notifier", URL: "http://localhost:8084"},
		}
	}

	return &cfg, nil
}
