package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/taskboard/backend/internal/config"
)

// ObjectStore is the blob backend for card attachments. Two implementations
// exist: MinIO for self-hosted deployments and S3 for AWS.
type ObjectStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectName string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration, contentType, contentDisposition string) (string, error)
	EnsureBucket(ctx context.Context) error
}

// New selects the backend from configuration.
func New(cfg *config.Config) (ObjectStore, error) {
	switch cfg.Storage.Provider {
	case config.StorageProviderMinIO:
		return NewMinIOStore(cfg.MinIO)
	case config.StorageProviderS3:
		return NewS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
