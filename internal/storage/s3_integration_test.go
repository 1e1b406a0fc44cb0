//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/cardsmith/internal/testutil"
)

func newTestS3Client(ctx context.Context, t *testing.T) *S3Client {
	rc := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() { rc.Terminate(context.Background()) })

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "storage-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx))
	return client
}

func TestS3Client_ObjectLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestS3Client(ctx, t)

	key := SourceKey("doc-1", "notes.txt")
	data := []byte("A variable stores a value.")

	require.NoError(t, client.PutObject(ctx, key, data, "text/plain"))

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), meta.ContentLength)
	assert.Equal(t, "text/plain", meta.ContentType)

	got, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	url, err := client.GenerateDownloadURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, url, "storage-test")

	require.NoError(t, client.DeleteObject(ctx, key))

	_, err = client.GetObject(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = client.HeadObject(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
