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
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/config"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/crm"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/handlers"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/server"
	"github.com/callflow-systems/callflow-stack/leadsvc/internal/tokencache"
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
	).With(logging.Service("leadsvc"))
	logging.SetDefault(logger)

	slog.Info("Starting Lead service",
		slog.Int("port", cfg.Server.Port),
		slog.String("broker", cfg.Broker.Backend),
		slog.String("crm_url", cfg.CRM.BaseURL),
	)

	// Initialize the CRM access-token cache
	var cache tokencache.Cache
	if cfg.Redis.Enabled {
		redisCache, err := tokencache.NewRedisCache(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v", err)
			log.Println("Falling back to in-memory token cache")
			cache = tokencache.NewMemoryCache()
		} else {
			cache = redisCache
			log.Printf("Redis token cache enabled: %s", cfg.Redis.URL)
		}
	} else {
		cache = tokencache.NewMemoryCache()
		log.Println("Redis disabled - using in-memory token cache")
	}
	defer cache.Close()

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

	// Initialize the CRM client and HTTP handlers
	crmClient := crm.New(cfg.CRM, cache)
	handler := handlers.NewHandler(crmClient, bus, logger)
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
		log.Printf("Lead service listening on %s", srv.Addr)
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
