package blobstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage("https://cdn.test/")
	ctx := context.Background()

	_, err := store.URL(ctx, "audio/a.webm")
	require.Error(t, err)

	obj, err := store.Put(ctx, "audio/a.webm", []byte("RIFF"), "audio/webm")
	require.NoError(t, err)
	require.Equal(t, int64(4), obj.Size)
	require.NotEmpty(t, obj.ETag)

	url, err := store.URL(ctx, "audio/a.webm")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/audio/a.webm", url)

	data, ok := store.Bytes("audio/a.webm")
	require.True(t, ok)
	require.Equal(t, "RIFF", string(data))
}

func TestSanitizeEndpoint(t *testing.T) {
	require.Equal(t, "acct.r2.cloudflarestorage.com", sanitizeEndpoint("https://acct.r2.cloudflarestorage.com/bucket"))
	require.Equal(t, "localhost:9000", sanitizeEndpoint(" http://localhost:9000 "))
}

func TestR2StoragePublicURL(t *testing.T) {
	store, err := NewR2Storage(R2Config{
		Endpoint:      "https://acct.r2.cloudflarestorage.com",
		AccessKey:     "key",
		SecretKey:     "secret",
		Bucket:        "clips",
		Region:        "auto",
		PublicBaseURL: "https://clips.example.com/",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	url, err := store.URL(context.Background(), "audio/a.webm")
	require.NoError(t, err)
	require.Equal(t, "https://clips.example.com/audio/a.webm", url)

	_, err = NewR2Storage(R2Config{Endpoint: "localhost:9000"}, nil)
	require.Error(t, err)
}
