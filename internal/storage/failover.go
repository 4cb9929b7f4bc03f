package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverStore serves from a primary store until it errors, then falls back
// and periodically probes the primary for recovery. ErrNotFound is a normal
// answer, not a failure.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time

	recoveryWindow time.Duration
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:        primary,
		fallback:       fallback,
		logger:         logger,
		recoveryWindow: time.Minute,
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.usePrimary() {
		val, err := s.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			return val, err
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, value []byte) error {
	if s.usePrimary() {
		err := s.primary.Set(ctx, key, value)
		if err == nil {
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Set(ctx, key, value)
}

func (s *FailoverStore) Delete(ctx context.Context, key string) error {
	if s.usePrimary() {
		err := s.primary.Delete(ctx, key)
		if err == nil {
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Delete(ctx, key)
}

// usePrimary reports whether the next call should try the primary, including
// a recovery probe once per window while the primary is marked down.
func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > s.recoveryWindow {
		s.lastCheck = time.Now()
		s.isDown.Store(false)
		return true
	}
	return false
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("primary store failed, falling back")
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}
