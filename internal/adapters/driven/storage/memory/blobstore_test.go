package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
)

func TestBlobStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	require.NoError(t, store.Put(ctx, "key", []byte("value")))

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), data)
}

func TestBlobStore_GetMissing(t *testing.T) {
	store := NewBlobStore()

	_, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestBlobStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	require.NoError(t, store.Put(ctx, "key", []byte("value")))
	require.NoError(t, store.Delete(ctx, "key"))

	_, err := store.Get(ctx, "key")
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(ctx, "key"))
}

func TestBlobStore_ListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	require.NoError(t, store.Put(ctx, "backup_config_1", []byte("a")))
	require.NoError(t, store.Put(ctx, "backup_config_2", []byte("b")))
	require.NoError(t, store.Put(ctx, "current_config", []byte("c")))

	keys, err := store.List(ctx, "backup_config_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backup_config_1", "backup_config_2"}, keys)
}

func TestBlobStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewBlobStore()

	require.NoError(t, store.Put(ctx, "key", []byte("value")))

	data, err := store.Get(ctx, "key")
	require.NoError(t, err)
	data[0] = 'X'

	fresh, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), fresh)
}
