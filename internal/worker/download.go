package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
	"github.com/DanielBergThomsen/tentahjalpen/internal/db"
	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/model"
	"github.com/DanielBergThomsen/tentahjalpen/internal/queue"

	"github.com/rs/zerolog"
)

// DownloadWorker consumes harvest download jobs, fetches the PDF bytes and stages
// them as suggestions. Each completion inserts a fresh row, so completions never
// conflict regardless of order.
type DownloadWorker struct {
	cfg        *config.Config
	repo       db.Repository
	consumer   *queue.Consumer
	workerPool *WorkerPool
	httpClient *http.Client
	log        zerolog.Logger
}

func NewDownloadWorker(cfg *config.Config, repo db.Repository, redisClient *queue.RedisClient) *DownloadWorker {
	timeout := cfg.Crawler.FetchTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &DownloadWorker{
		cfg:        cfg,
		repo:       repo,
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool(cfg.Workers.Download.Count),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.With("download-worker"),
	}
}

func (w *DownloadWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting download worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeDownloadQueue(ctx, w.handleMessage)
}

func (w *DownloadWorker) Stop() {
	w.log.Info().Msg("Stopping download worker")
	w.workerPool.Stop()
}

func (w *DownloadWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.DownloadJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal download job")
		return err
	}

	w.log.Info().Str("code", job.Code).Str("taken", job.Taken).Str("kind", string(job.Kind)).
		Msg("Processing download job")

	w.workerPool.Submit(func(ctx context.Context) error {
		return w.download(ctx, job)
	})

	return nil
}

func (w *DownloadWorker) download(ctx context.Context, job model.DownloadJob) error {
	log := w.log.With().Str("code", job.Code).Str("taken", job.Taken).
		Str("kind", string(job.Kind)).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PDF fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read PDF body: %w", err)
	}

	suggestion := &model.Suggestion{
		Code:  job.Code,
		Taken: job.Taken,
	}
	switch job.Kind {
	case model.KindExam:
		suggestion.Exam = data
	case model.KindSolution:
		suggestion.Solution = data
	default:
		return fmt.Errorf("unknown attachment kind %q", job.Kind)
	}

	if err := w.repo.InsertSuggestion(ctx, suggestion); err != nil {
		return fmt.Errorf("failed to stage suggestion: %w", err)
	}

	log.Info().Int("bytes", len(data)).Msg("Staged attachment suggestion")
	return nil
}
