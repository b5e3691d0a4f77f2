package snapshot

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/postrater/internal/config"
)

type mockS3Client struct {
	uploadErr  error
	presignErr error

	uploads    int
	lastBucket string
	lastObject string
	lastFile   string
	lastExpiry time.Duration
}

func (m *mockS3Client) FPutObject(_ context.Context, bucket, objectName, filePath string) error {
	m.uploads++
	m.lastBucket = bucket
	m.lastObject = objectName
	m.lastFile = filePath
	return m.uploadErr
}

func (m *mockS3Client) PresignedGetObject(_ context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	m.lastBucket = bucket
	m.lastObject = objectName
	m.lastExpiry = expiry
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	return url.Parse("https://s3.example.com/" + bucket + "/" + objectName + "?X-Amz-Signature=abc")
}

func newTestUploader(m *mockS3Client) *S3Uploader {
	return &S3Uploader{client: m, bucket: "ratings", urlExpiry: 15 * time.Minute}
}

func TestNoopUploader(t *testing.T) {
	u := NoopUploader{}
	assert.NoError(t, u.Upload(context.Background(), "/tmp/current.db"))

	_, _, err := u.PresignedURL(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewUploader_EmptyBucketIsLocalOnly(t *testing.T) {
	u, err := NewUploader(config.SnapshotStorageConfig{})
	require.NoError(t, err)
	assert.IsType(t, NoopUploader{}, u)
}

func TestNewUploader_WithBucket(t *testing.T) {
	u, err := NewUploader(config.SnapshotStorageConfig{
		Bucket:    "ratings",
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		URLExpiry: config.Duration(10 * time.Minute),
	})
	require.NoError(t, err)

	s3u, ok := u.(*S3Uploader)
	require.True(t, ok, "expected *S3Uploader, got %T", u)
	assert.Equal(t, "ratings", s3u.bucket)
	assert.Equal(t, 10*time.Minute, s3u.urlExpiry)
}

func TestS3Uploader_Upload(t *testing.T) {
	m := &mockS3Client{}
	require.NoError(t, newTestUploader(m).Upload(context.Background(), "/data/snapshots/current.db"))

	assert.Equal(t, 1, m.uploads)
	assert.Equal(t, "ratings", m.lastBucket)
	assert.Equal(t, "snapshots/current.db", m.lastObject)
	assert.Equal(t, "/data/snapshots/current.db", m.lastFile)
}

func TestS3Uploader_UploadError(t *testing.T) {
	netErr := errors.New("network timeout")
	err := newTestUploader(&mockS3Client{uploadErr: netErr}).Upload(context.Background(), "/x.db")
	assert.ErrorIs(t, err, netErr)
	assert.Contains(t, err.Error(), "ratings/snapshots/current.db")
}

func TestS3Uploader_PresignedURL(t *testing.T) {
	m := &mockS3Client{}
	before := time.Now()

	link, expiry, err := newTestUploader(m).PresignedURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://s3.example.com/ratings/snapshots/current.db?X-Amz-Signature=abc", link)
	assert.Equal(t, 15*time.Minute, m.lastExpiry)
	assert.WithinDuration(t, before.Add(15*time.Minute), expiry, 2*time.Second)
}

func TestS3Uploader_PresignedURLError(t *testing.T) {
	denied := errors.New("access denied")
	_, _, err := newTestUploader(&mockS3Client{presignErr: denied}).PresignedURL(context.Background())
	assert.ErrorIs(t, err, denied)
}

func TestStripScheme(t *testing.T) {
	tests := []struct {
		endpoint string
		wantHost string
		wantSSL  bool
	}{
		{"s3.example.com", "s3.example.com", true},
		{"minio:9000", "minio:9000", true},
		{"https://s3.example.com", "s3.example.com", true},
		{"http://minio:9000", "minio:9000", false},
		{"http://localhost:9000", "localhost:9000", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			ssl := true
			assert.Equal(t, tt.wantHost, stripScheme(tt.endpoint, &ssl))
			assert.Equal(t, tt.wantSSL, ssl)
		})
	}
}
