package worker

import (
	"context"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/ingest"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/storage"

	"github.com/rs/zerolog"
)

// IngestWorker runs the scheduled ingestion cycle: change detection, normalization
// and reconciliation. A failed cycle is logged and retried on the next tick; partial
// inserts are safe because reconciliation is idempotent.
type IngestWorker struct {
	cfg        *config.Config
	detector   *ingest.Detector
	normalizer *ingest.Normalizer
	reconciler *ingest.Reconciler
	log        zerolog.Logger
}

func NewIngestWorker(cfg *config.Config, repo db.Repository, store storage.Storage) *IngestWorker {
	return &IngestWorker{
		cfg:        cfg,
		detector:   ingest.NewDetector(store, cfg.Source.FetchTimeout),
		normalizer: ingest.NewNormalizer(),
		reconciler: ingest.NewReconciler(repo),
		log:        logger.With("ingest-worker"),
	}
}

func (w *IngestWorker) Start(ctx context.Context) error {
	interval := w.cfg.Workers.Ingest.Interval
	if interval == 0 {
		interval = 24 * time.Hour
	}

	w.log.Info().Dur("interval", interval).Msg("Starting ingest worker")

	if w.cfg.Workers.Ingest.RunOnStart {
		w.log.Info().Msg("Running initial ingestion on startup")
		if err := w.runCycle(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial ingestion failed")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Ingest worker context cancelled")
			return ctx.Err()
		case <-ticker.C:
			w.log.Info().Msg("Starting scheduled ingestion")
			if err := w.runCycle(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled ingestion failed")
			}
		}
	}
}

// RunOnce runs a single ingestion cycle outside the schedule, used by the
// moderation tool's manual trigger.
func (w *IngestWorker) RunOnce(ctx context.Context) error {
	return w.runCycle(ctx)
}

func (w *IngestWorker) runCycle(ctx context.Context) error {
	start := time.Now()

	w.log.Info().Msg("Checking statistics document")
	updated, err := w.detector.CheckForUpdate(ctx, w.cfg.Source.SpreadsheetURL, w.cfg.Source.SnapshotKey)
	if err != nil {
		return err
	}

	if !updated {
		w.log.Info().Msg("No update necessary")
		return nil
	}

	w.log.Info().Msg("Extracting results from document")
	snapshot, err := w.detector.Snapshot(ctx, w.cfg.Source.SnapshotKey)
	if err != nil {
		return err
	}

	results, err := w.normalizer.Normalize(snapshot)
	if err != nil {
		return err
	}

	w.log.Info().Int("records", len(results)).Msg("Reconciling results")
	insertions, err := w.reconciler.Reconcile(ctx, results)
	if err != nil {
		return err
	}

	w.log.Info().
		Dur("duration", time.Since(start)).
		Int("records", len(results)).
		Int("insertions", insertions).
		Msg("Ingestion cycle completed")
	return nil
}
