package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"storesync/internal/api"
	"storesync/internal/config"
	"storesync/internal/database"
	"storesync/internal/logger"
	"storesync/internal/queue"
	"storesync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := cfg.Validate("api"); err != nil {
		log.Fatal(err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	dbLogLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		dbLogLevel = gormlogger.Info
	}
	db, err := database.New(cfg.DatabaseURL, database.Options{Driver: cfg.DatabaseDriver, LogLevel: dbLogLevel, Logger: logger})
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize job queue
	var jobQueue queue.Enqueuer
	var local *queue.Local
	switch cfg.QueueBackend {
	case "local":
		processor, err := worker.NewProcessor(cfg, logger, db.DB)
		if err != nil {
			logger.Fatal("Failed to initialize job processor: %v", err)
		}
		local = queue.NewLocal(processor, logger.With("component", "local-queue"))
		jobQueue = local
		logger.Info("Running jobs in-process")
	default:
		producer, err := queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer: %v", err)
		}
		defer producer.Close()
		jobQueue = producer
	}

	// Initialize API server
	server := api.New(cfg, logger, db, jobQueue)

	go func() {
		logger.Info("Starting API server on port %s", cfg.APIPort)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	if local != nil {
		logger.Info("Waiting for in-process jobs to finish...")
		local.Wait()
	}
}
