package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/storage"
	"github.com/DanielBergThomsen/tentahjalpen/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting ingest worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize repository
	repo := db.NewRepository(database)

	// Initialize snapshot storage
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot storage")
	}

	// Create ingest worker
	ingestWorker := worker.NewIngestWorker(cfg, repo, store)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker
	go func() {
		if err := ingestWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Ingest worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down ingest worker...")
	cancel()

	log.Info().Msg("Ingest worker exited")
}
