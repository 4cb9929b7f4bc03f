package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"
)

// brokenStore errors on everything while broken is set.
type brokenStore struct {
	*MemoryStore
	broken bool
	calls  int
}

func (s *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.calls++
	if s.broken {
		return nil, errors.New("store unavailable")
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *brokenStore) Set(ctx context.Context, key string, value []byte) error {
	s.calls++
	if s.broken {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *brokenStore) Delete(ctx context.Context, key string) error {
	s.calls++
	if s.broken {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Delete(ctx, key)
}

func newTestFailover(primary, fallback Store) *FailoverStore {
	logger := zerolog.Nop()
	return NewFailoverStore(primary, fallback, &logger)
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &brokenStore{MemoryStore: NewMemoryStore()}
	fallback := NewMemoryStore()
	store := newTestFailover(primary, fallback)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

	val, err := primary.MemoryStore.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	_, err = fallback.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFailoverNotFoundIsNotAFailure(t *testing.T) {
	primary := &brokenStore{MemoryStore: NewMemoryStore()}
	store := newTestFailover(primary, NewMemoryStore())

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, store.isDown.Load())
}

func TestFailoverFallsBackOnError(t *testing.T) {
	primary := &brokenStore{MemoryStore: NewMemoryStore(), broken: true}
	fallback := NewMemoryStore()
	store := newTestFailover(primary, fallback)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)

	// After the first failure, the primary is skipped entirely.
	calls := primary.calls
	require.NoError(t, store.Set(ctx, "k2", []byte("v2")))
	assert.Equal(t, calls, primary.calls)
}

func TestFailoverProbesPrimaryAfterRecoveryWindow(t *testing.T) {
	primary := &brokenStore{MemoryStore: NewMemoryStore(), broken: true}
	store := newTestFailover(primary, NewMemoryStore())
	store.recoveryWindow = 10 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("v1")))
	assert.True(t, store.isDown.Load())

	primary.broken = false
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, store.Set(ctx, "k2", []byte("v2")))
	assert.False(t, store.isDown.Load())

	val, err := primary.MemoryStore.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), val)
}
