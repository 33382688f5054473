package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/taskboard/backend/internal/config"
	"github.com/taskboard/backend/pkg/logger"
)

type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinIOStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("attachment_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"size":        size,
			"bucket":      m.bucket,
		})
		return err
	}

	logger.Info("attachment_uploaded", map[string]interface{}{
		"object_name":  objectName,
		"size":         size,
		"content_type": contentType,
		"bucket":       m.bucket,
	})
	return nil
}

func (m *MinIOStore) Remove(ctx context.Context, objectName string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("attachment_delete_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      m.bucket,
		})
	}
	return err
}

func (m *MinIOStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration, contentType, contentDisposition string) (string, error) {
	query := make(url.Values)
	if contentType != "" {
		query.Set("response-content-type", contentType)
	}
	if contentDisposition != "" {
		query.Set("response-content-disposition", contentDisposition)
	}

	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, query)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}
