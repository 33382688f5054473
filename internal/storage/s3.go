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

// S3Store talks to AWS S3 through the minio client. With no static keys it
// falls back to IAM instance credentials.
type S3Store struct {
	client *minio.Client
	bucket string
	region string
}

func NewS3Store(cfg config.S3Config) (*S3Store, error) {
	var creds *credentials.Credentials
	if cfg.AccessKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: true,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Store{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

func (s *S3Store) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("attachment_upload_failed", err, map[string]interface{}{
			"object_name": objectName,
			"size":        size,
			"bucket":      s.bucket,
		})
		return err
	}

	logger.Info("attachment_uploaded", map[string]interface{}{
		"object_name":  objectName,
		"size":         size,
		"content_type": contentType,
		"bucket":       s.bucket,
	})
	return nil
}

func (s *S3Store) Remove(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("attachment_delete_failed", err, map[string]interface{}{
			"object_name": objectName,
			"bucket":      s.bucket,
		})
	}
	return err
}

func (s *S3Store) PresignedURL(ctx context.Context, objectName string, expiry time.Duration, contentType, contentDisposition string) (string, error) {
	query := make(url.Values)
	if contentType != "" {
		query.Set("response-content-type", contentType)
	}
	if contentDisposition != "" {
		query.Set("response-content-disposition", contentDisposition)
	}

	urlValue, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, query)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", s.bucket, err)
	}
	return nil
}
