package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/adapters/batchio"
	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	"github.com/zatekoja/stayaudit/pkg/config"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

const reportPrefix = "reports"

// ObjectStore is the subset of the MinIO client the archive uses
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioArchive stores batch reports and results in an S3-compatible bucket
type MinioArchive struct {
	store  ObjectStore
	bucket string

	initOnce sync.Once
	initErr  error
}

var _ providers.ReportArchive = (*MinioArchive)(nil)

// NewMinioArchive connects to the configured endpoint
func NewMinioArchive(cfg *config.StorageConfig) (*MinioArchive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, apperrors.NewConfigurationAbsentError("storage endpoint is not configured")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, apperrors.NewConfigurationAbsentError("storage access key and secret key are required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return NewMinioArchiveWithStore(client, cfg.Bucket), nil
}

// NewMinioArchiveWithStore builds an archive over an existing store
func NewMinioArchiveWithStore(store ObjectStore, bucket string) *MinioArchive {
	return &MinioArchive{store: store, bucket: bucket}
}

func (a *MinioArchive) ensureBucket(ctx context.Context) error {
	a.initOnce.Do(func() {
		exists, err := a.store.BucketExists(ctx, a.bucket)
		if err != nil {
			a.initErr = err
			return
		}
		if !exists {
			a.initErr = a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{})
		}
	})
	return a.initErr
}

// ArchiveReport writes report.json and results.csv under reports/<run id>/
// and returns the object prefix.
func (a *MinioArchive) ArchiveReport(ctx context.Context, report *entities.BatchReport, results []entities.BatchResult) (string, error) {
	if report == nil || strings.TrimSpace(report.RunID) == "" {
		return "", apperrors.NewValidationError("report run id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", apperrors.NewRemoteCallError("failed to ensure report bucket", err)
	}

	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	var csvBuf bytes.Buffer
	if err := batchio.WriteResultsCSV(&csvBuf, results); err != nil {
		return "", err
	}

	prefix := ObjectPrefix(report.RunID)
	if err := a.put(ctx, prefix+"report.json", reportJSON, "application/json"); err != nil {
		return "", err
	}
	if err := a.put(ctx, prefix+"results.csv", csvBuf.Bytes(), "text/csv"); err != nil {
		return "", err
	}

	location := a.bucket + "/" + prefix
	log.Info().Str("location", location).Int("results", len(results)).Msg("Batch report archived")
	return location, nil
}

func (a *MinioArchive) put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.NewRemoteCallError("failed to upload "+key, err)
	}
	return nil
}

// ObjectPrefix is the folder holding one run's objects
func ObjectPrefix(runID string) string {
	return reportPrefix + "/" + strings.TrimSpace(runID) + "/"
}
