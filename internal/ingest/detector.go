package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DanielBergThomsen/tentahjalpen/internal/logger"
	"github.com/DanielBergThomsen/tentahjalpen/internal/storage"

	"github.com/rs/zerolog"
)

// Detector decides whether the remote statistics document has changed since the last
// ingestion cycle by comparing it byte-for-byte against the stored snapshot. No
// conditional HTTP is used; the snapshot is the single source of truth.
type Detector struct {
	store      storage.Storage
	httpClient *http.Client
	log        zerolog.Logger
}

func NewDetector(store storage.Storage, timeout time.Duration) *Detector {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Detector{
		store: store,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.With("detector"),
	}
}

// CheckForUpdate fetches the document at url and reports whether re-ingestion is
// needed. On the first run, or when the content differs from the snapshot under key,
// the snapshot is overwritten and true is returned. Identical content leaves the
// snapshot untouched. Network and storage errors propagate to the caller.
func (d *Detector) CheckForUpdate(ctx context.Context, url, key string) (bool, error) {
	fetched, err := d.fetch(ctx, url)
	if err != nil {
		return false, err
	}

	exists, err := d.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}

	if exists {
		cached, err := d.readSnapshot(ctx, key)
		if err != nil {
			return false, err
		}

		if bytes.Equal(cached, fetched) {
			d.log.Debug().Str("key", key).Msg("Snapshot up-to-date")
			return false, nil
		}

		d.log.Info().Str("key", key).Msg("Updating snapshot contents")
	} else {
		d.log.Info().Str("key", key).Msg("Writing new snapshot")
	}

	if err := d.store.Upload(ctx, key, bytes.NewReader(fetched)); err != nil {
		return false, err
	}

	return true, nil
}

// Snapshot returns the stored copy of the document, used for parsing after
// CheckForUpdate reported a change.
func (d *Detector) Snapshot(ctx context.Context, key string) ([]byte, error) {
	return d.readSnapshot(ctx, key)
}

func (d *Detector) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}

	return data, nil
}

func (d *Detector) readSnapshot(ctx context.Context, key string) ([]byte, error) {
	reader, err := d.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
