package storage

import (
	"context"
	"errors"
	"io"

	"github.com/DanielBergThomsen/tentahjalpen/internal/config"
)

// ErrNotFound is returned by Download when no blob exists under the given key.
var ErrNotFound = errors.New("blob not found")

// Storage holds opaque blobs keyed by name. The ingestion pipeline uses it for the
// spreadsheet snapshot that change detection compares against.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.Reader) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New selects the configured backend.
func New(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return NewS3Storage(cfg.Storage.S3)
	default:
		return NewLocalStorage(cfg.Storage.Local.Dir)
	}
}
