package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"edulearn/edulearn/config"
	"edulearn/edulearn/utils/logging"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOClient uploads chat exports to an object bucket.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	m := &MinIOClient{client: client, bucket: cfg.MinIOBucket}
	if err := m.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	logging.AppLogger.Info("created export bucket", zap.String("bucket", m.bucket))
	return nil
}

// ExportKey names the object an export of ownerID taken at t is stored under.
func ExportKey(ownerID string, t time.Time) string {
	return path.Join("exports", ownerID, t.UTC().Format("20060102T150405.000Z")+".json")
}

// UploadExport stores one JSON export and returns its key.
func (m *MinIOClient) UploadExport(ctx context.Context, ownerID string, data []byte) (string, error) {
	key := ExportKey(ownerID, time.Now())
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"owner": ownerID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	return key, nil
}
