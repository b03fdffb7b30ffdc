package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/pkg/config"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

type fakeStore struct {
	exists  bool
	made    int
	objects map[string]string
	types   map[string]string
	putErr  error
}

func newFakeStore(exists bool) *fakeStore {
	return &fakeStore{exists: exists, objects: map[string]string{}, types: map[string]string{}}
}

func (f *fakeStore) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	f.made++
	f.exists = true
	return nil
}

func (f *fakeStore) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = string(data)
	f.types[objectName] = opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func TestArchiveReport(t *testing.T) {
	store := newFakeStore(false)
	archive := NewMinioArchiveWithStore(store, "stayaudit-reports")

	report := &entities.BatchReport{RunID: "run-42", Total: 1, PriorityDistribution: map[entities.Priority]int{entities.PriorityHigh: 1}}
	results := []entities.BatchResult{{StayID: "INT-1", Priority: entities.PriorityHigh, Reasons: []string{"a", "b"}}}

	location, err := archive.ArchiveReport(context.Background(), report, results)
	require.NoError(t, err)
	assert.Equal(t, "stayaudit-reports/reports/run-42/", location)
	assert.Equal(t, 1, store.made)

	var got entities.BatchReport
	require.NoError(t, json.Unmarshal([]byte(store.objects["reports/run-42/report.json"]), &got))
	assert.Equal(t, 1, got.PriorityDistribution[entities.PriorityHigh])
	assert.Equal(t, "application/json", store.types["reports/run-42/report.json"])

	csv := store.objects["reports/run-42/results.csv"]
	assert.True(t, strings.HasPrefix(csv, "internacao_id,"))
	assert.Contains(t, csv, "a; b")

	_, err = archive.ArchiveReport(context.Background(), &entities.BatchReport{RunID: "run-43"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.made)
}

func TestArchiveReport_Errors(t *testing.T) {
	archive := NewMinioArchiveWithStore(newFakeStore(true), "b")
	_, err := archive.ArchiveReport(context.Background(), &entities.BatchReport{}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	store := newFakeStore(true)
	store.putErr = errors.New("access denied")
	_, err = NewMinioArchiveWithStore(store, "b").ArchiveReport(context.Background(), &entities.BatchReport{RunID: "r"}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRemoteCall))
}

func TestNewMinioArchive_RequiresEndpoint(t *testing.T) {
	_, err := NewMinioArchive(&config.StorageConfig{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfigurationAbsent))

	_, err = NewMinioArchive(&config.StorageConfig{Endpoint: "localhost:9000"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfigurationAbsent))
}
