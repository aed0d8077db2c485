//go:build integration

package storage

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/corpusworks/docindex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Client(ctx context.Context, t *testing.T) (*S3Client, *testutil.RustFSContainer) {
	t.Helper()
	container := testutil.NewRustFSContainer(ctx, t)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        container.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-uploads",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	return client, container
}

func putViaPresignedURL(ctx context.Context, t *testing.T, url string, content []byte, contentType string) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(content))
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.True(t, resp.StatusCode >= 200 && resp.StatusCode < 300,
		"upload should succeed, got %d", resp.StatusCode)
}

func TestS3ClientIntegration_UploadRoundtrip(t *testing.T) {
	ctx := context.Background()
	client, container := newTestS3Client(ctx, t)
	defer container.Terminate(ctx)

	content := []byte("The quarterly report shows steady growth across regions.")
	key := "uploads/test/report.txt"

	url, err := client.GenerateUploadURL(ctx, key, "text/plain")
	require.NoError(t, err)
	assert.Contains(t, url, container.Endpoint())

	putViaPresignedURL(ctx, t, url, content, "text/plain")

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), meta.ContentLength)
	assert.Equal(t, "text/plain", meta.ContentType)

	downloaded, err := client.DownloadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content, downloaded)
}

func TestS3ClientIntegration_DeleteObject(t *testing.T) {
	ctx := context.Background()
	client, container := newTestS3Client(ctx, t)
	defer container.Terminate(ctx)

	key := "uploads/test/to-delete.txt"
	url, err := client.GenerateUploadURL(ctx, key, "text/plain")
	require.NoError(t, err)
	putViaPresignedURL(ctx, t, url, []byte("ephemeral"), "text/plain")

	require.NoError(t, client.DeleteObject(ctx, key))

	_, err = client.HeadObject(ctx, key)
	assert.Error(t, err)
}

func TestS3ClientIntegration_HeadMissingObject(t *testing.T) {
	ctx := context.Background()
	client, container := newTestS3Client(ctx, t)
	defer container.Terminate(ctx)

	_, err := client.HeadObject(ctx, "uploads/never/written.txt")
	assert.Error(t, err)
}

func TestS3ClientIntegration_EnsureBucketIdempotent(t *testing.T) {
	ctx := context.Background()
	client, container := newTestS3Client(ctx, t)
	defer container.Terminate(ctx)

	// Second call finds the bucket already present
	assert.NoError(t, client.EnsureBucket(ctx))
}
