package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callflow-systems/callflow-stack/callsvc/internal/config"
	"github.com/callflow-systems/callflow-stack/callsvc/internal/handlers"
	"github.com/callflow-systems/callflow-stack/callsvc/internal/poller"
	"github.com/callflow-systems/callflow-stack/callsvc/internal/server"
	"github.com/callflow-systems/callflow-stack/callsvc/internal/telephony"
	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging/backends"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("callsvc"))
	logging.SetDefault(logger)

	slog.Info("Starting Call service",
		slog.Int("port", cfg.Server.Port),
		slog.String("broker", cfg.Broker.Backend),
		slog.String("platform_url", cfg.Telephony.BaseURL),
	)

	// Connect to the message broker
	bus, err := backends.New(cfg.Broker, logger.Logger)
	if err != nil {
		log.Fatalf("Failed to create message bus: %v", err)
	}
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := bus.Connect(connectCtx); err != nil {
		connectCancel()
		log.Fatalf("Failed to connect to message broker: %v", err)
	}
	connectCancel()
	defer bus.Close()
	log.Printf("Connected to %s message broker", cfg.Broker.Backend)

	// Initialize telephony client and poller
	platform := telephony.New(cfg.Telephony)
	p := poller.New(platform, bus, logger, cfg.Poll.Interval, cfg.Poll.HoursBack)

	if cfg.Poll.Enabled {
		pollCtx, pollCancel := context.WithCancel(context.Background())
		defer pollCancel()
		go p.Run(pollCtx)
		log.Printf("Background polling enabled (interval: %s, hours back: %d)", cfg.Poll.Interval, cfg.Poll.HoursBack)
	} else {
		log.Println("Background polling disabled; polls run on demand only")
	}

	// Initialize HTTP handlers
	handler := handlers.NewHandler(platform, p, bus, logger)
	router := server.NewRouter(handler)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Call service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
