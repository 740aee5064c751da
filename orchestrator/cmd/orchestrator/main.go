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

	"github.com/callflow-systems/callflow-stack/common/logging"
	"github.com/callflow-systems/callflow-stack/common/messaging/backends"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/config"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/handlers"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/server"
	"github.com/callflow-systems/callflow-stack/orchestrator/internal/workflow"
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
	).With(logging.Service("orchestrator"))
	logging.SetDefault(logger)

	slog.Info("Starting Orchestrator service",
		slog.Int("port", cfg.Server.Port),
		slog.String("broker", cfg.Broker.Backend),
		slog.String("lead_url", cfg.Services.LeadURL),
		slog.String("call_url", cfg.Services.CallURL),
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

	// Initialize service clients and the workflow engine
	leadClient := workflow.NewHTTPLeadClient(cfg.Services.LeadURL)
	callClient := workflow.NewHTTPCallClient(cfg.Services.CallURL)
	engine := workflow.NewEngine(bus, leadClient, callClient, logger)

	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start workflow engine: %v", err)
	}
	log.Printf("Workflow engine subscribed to %d topics", len(engine.SubscribedTopics()))

	// Initialize HTTP handlers
	handler := handlers.NewHandler(engine, bus, logger)
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
		log.Printf("Orchestrator service listening on %s", srv.Addr)
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
