package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) StorageService {
	t.Helper()

	svc, err := NewStorageService(ServiceConfig{
		S3BucketName:      "attachments",
		S3Endpoint:        "http://localhost:9000",
		S3AccessKeyID:     "minioadmin",
		S3SecretAccessKey: "minioadmin",
	})
	require.NoError(t, err)
	return svc
}

func TestPresignUploadURL(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.PresignUpload(context.Background(), "room-1/file.png", "image/png", 1024, 15*time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	// Path-style addressing puts the bucket ahead of the key.
	assert.True(t, strings.HasPrefix(parsed.Path, "/attachments/room-1/file.png"))
	assert.Equal(t, "900", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
}

func TestPresignDownloadURL(t *testing.T) {
	svc := newTestService(t)

	raw, err := svc.PresignDownload(context.Background(), "room-1/file.png", 5*time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(parsed.Path, "/attachments/room-1/file.png"))
	assert.Equal(t, "300", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
}
