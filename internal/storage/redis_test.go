package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, prefix string) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, prefix)
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store := newTestRedisStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreMissingKey(t *testing.T) {
	store := newTestRedisStore(t, "")

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, "frontdesk")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

	assert.True(t, mr.Exists("frontdesk:k1"))
	assert.False(t, mr.Exists("k1"))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("v1")
	require.NoError(t, store.Set(ctx, "k1", value))
	value[0] = 'x'

	stored, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), stored)

	stored[0] = 'y'
	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again)
}
