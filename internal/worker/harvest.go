package worker

import (
	"context"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/harvest"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/queue"

	"github.com/rs/zerolog"
)

// HarvestWorker runs the crawl on its own schedule, independent of the ingestion
// cycle. The two touch disjoint tables, so overlap is harmless.
type HarvestWorker struct {
	cfg     *config.Config
	crawler *harvest.Crawler
	log     zerolog.Logger
}

func NewHarvestWorker(cfg *config.Config, repo db.Repository, producer *queue.Producer) *HarvestWorker {
	return &HarvestWorker{
		cfg:     cfg,
		crawler: harvest.NewCrawler(cfg.Crawler, repo, producer),
		log:     logger.With("harvest-worker"),
	}
}

func (w *HarvestWorker) Start(ctx context.Context) error {
	interval := w.cfg.Workers.Harvest.Interval
	if interval == 0 {
		interval = 24 * time.Hour
	}

	w.log.Info().Dur("interval", interval).Msg("Starting harvest worker")

	if w.cfg.Workers.Harvest.RunOnStart {
		w.log.Info().Msg("Running initial crawl on startup")
		if err := w.crawler.Run(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial crawl failed")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Harvest worker context cancelled")
			return ctx.Err()
		case <-ticker.C:
			w.log.Info().Msg("Starting scheduled crawl")
			if err := w.crawler.Run(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled crawl failed")
			}
		}
	}
}
