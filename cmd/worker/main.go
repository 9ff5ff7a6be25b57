package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"storesync/internal/config"
	"storesync/internal/database"
	"storesync/internal/logger"
	"storesync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.Validate("worker"); err != nil {
		log.Fatal(err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel).With("service", "worker")

	// Initialize database
	db, err := database.New(cfg.DatabaseURL, database.Options{Driver: cfg.DatabaseDriver, Logger: logger})
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	processor, err := worker.NewProcessor(cfg, logger, db.DB)
	if err != nil {
		logger.Fatal("Failed to initialize job processor: %v", err)
	}

	// Initialize worker
	w := worker.New(cfg, logger, processor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start worker
	logger.Info("Starting worker...")
	w.Start(ctx)

	logger.Info("Shutting down worker...")
	w.Stop()
}
