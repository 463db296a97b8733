package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Igor555433/evia-ecosystem/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// EvidenceStore persists uploaded evidence artifacts and returns the
// location recorded in the run's evidence list.
type EvidenceStore interface {
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// MinioEvidenceStore keeps uploads in an object storage bucket and hands
// out presigned URLs as evidence locations.
type MinioEvidenceStore struct {
	client *minio.Client
	config *config.MinioConfig
}

func NewMinioEvidenceStore(cfg *config.MinioConfig) (*MinioEvidenceStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioEvidenceStore{client: client, config: cfg}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioEvidenceStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (s *MinioEvidenceStore) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("uploads/%s/%s", uuid.New().String(), filepath.Base(filename))

	_, err := s.client.PutObject(ctx, s.config.Bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence: %w", err)
	}

	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.config.Bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}

// LocalEvidenceStore keeps uploads in a directory next to the runs. Used
// when no object storage endpoint is configured.
type LocalEvidenceStore struct {
	dir string
}

func NewLocalEvidenceStore(dir string) *LocalEvidenceStore {
	return &LocalEvidenceStore{dir: dir}
}

func (s *LocalEvidenceStore) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads directory: %w", err)
	}

	target := filepath.Join(s.dir, filepath.Base(filename))
	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("store evidence file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("store evidence file: %w", err)
	}

	return target, nil
}
