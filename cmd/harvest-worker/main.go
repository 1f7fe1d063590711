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
	"github.com/DanielBergThomsen/tentahjalpen/internal/queue"
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

	log.Info().Str("version", cfg.App.Version).Msg("Starting harvest worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize repository
	repo := db.NewRepository(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize queue producer for discovered PDFs
	producer := queue.NewProducer(redisClient, cfg)

	// Create workers: the crawler discovers candidates, the download worker stages them
	harvestWorker := worker.NewHarvestWorker(cfg, repo, producer)
	downloadWorker := worker.NewDownloadWorker(cfg, repo, redisClient)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := downloadWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Download worker failed")
		}
	}()

	go func() {
		if err := harvestWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Fatal().Err(err).Msg("Harvest worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down harvest worker...")
	cancel()
	downloadWorker.Stop()

	log.Info().Msg("Harvest worker exited")
}
