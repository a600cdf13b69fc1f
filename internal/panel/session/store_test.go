package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	key := SanitizeKey("http://panel.example.com:8080/admin/")
	assert.Equal(t, "http_panel.example.com_8080_admin", key)
	assert.NotContains(t, key, "/")
	assert.NotContains(t, key, ":")
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	key := SanitizeKey("http://panel.example.com")

	// Missing key loads as nil without error
	blob, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, blob)

	require.NoError(t, store.Save(ctx, key, []byte(`{"cookies":[]}`)))

	blob, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"cookies":[]}`), blob)

	require.NoError(t, store.Delete(ctx, key))
	blob, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, blob)

	// Deleting a missing key is a no-op
	require.NoError(t, store.Delete(ctx, key))
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	blob := []byte("abc")
	require.NoError(t, store.Save(ctx, "k", blob))
	blob[0] = 'z'

	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}
