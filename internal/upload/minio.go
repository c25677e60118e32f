package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 7 * 24 * time.Hour

// StorageConfig holds MinIO connection settings for the private upload
// target.
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// minioStore uploads screenshots to a private bucket and hands out presigned
// GET URLs, so captures stay off the public hosts when a MinIO endpoint is
// configured.
type minioStore struct {
	mc     *minio.Client
	bucket string
}

func newMinioStore(cfg StorageConfig) (*minioStore, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &minioStore{mc: mc, bucket: cfg.Bucket}, nil
}

// init creates the bucket if it does not exist.
func (s *minioStore) init(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}

	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

func (s *minioStore) upload(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)

	_, err := s.mc.FPutObject(ctx, s.bucket, name, path, minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", s.bucket, name, err)
	}

	url, err := s.mc.PresignedGetObject(ctx, s.bucket, name, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", s.bucket, name, err)
	}

	return url.String(), nil
}
