package token

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

const (
	accessTokenKey  = "catchup:access_token"
	refreshTokenKey = "catchup:refresh_token"
)

// Store holds the bearer and refresh tokens for the current session. The
// in-memory copy is authoritative; the backing KV only makes the pair survive
// process restarts. Storage failures are logged and the store degrades to
// memory-only behaviour; no Store operation ever fails or panics.
type Store struct {
	kv  storage.KV
	log *zap.SugaredLogger

	mu      sync.RWMutex
	loaded  bool
	access  string
	refresh string
}

func NewStore(kv storage.KV, log *zap.SugaredLogger) *Store {
	return &Store{kv: kv, log: log}
}

func (s *Store) AccessToken(ctx context.Context) string {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.access
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.access
}

func (s *Store) SetAccessToken(ctx context.Context, tok string) {
	s.mu.Lock()
	s.loadLocked(ctx)
	s.access = tok
	s.mu.Unlock()

	s.persist(ctx, accessTokenKey, tok)
}

func (s *Store) RefreshToken(ctx context.Context) string {
	s.mu.RLock()
	if s.loaded {
		defer s.mu.RUnlock()
		return s.refresh
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return s.refresh
}

func (s *Store) SetRefreshToken(ctx context.Context, tok string) {
	s.mu.Lock()
	s.loadLocked(ctx)
	s.refresh = tok
	s.mu.Unlock()

	s.persist(ctx, refreshTokenKey, tok)
}

// Clear drops both tokens from memory and from the KV. Used on logout,
// refresh failure and 401 responses.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.loaded = true
	s.access = ""
	s.refresh = ""
	s.mu.Unlock()

	for _, key := range []string{accessTokenKey, refreshTokenKey} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.log.Warnw("failed to clear token from storage", "key", key, "error", err)
		}
	}
}

// loadLocked pulls persisted tokens into memory exactly once. Callers must
// hold the write lock.
func (s *Store) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	s.access = s.read(ctx, accessTokenKey)
	s.refresh = s.read(ctx, refreshTokenKey)
}

func (s *Store) read(ctx context.Context, key string) string {
	value, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warnw("failed to read token from storage, degrading to in-memory only", "key", key, "error", err)
		}
		return ""
	}
	return value
}

func (s *Store) persist(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.kv.Delete(ctx, key)
	} else {
		err = s.kv.Set(ctx, key, value)
	}
	if err != nil {
		s.log.Warnw("failed to persist token, degrading to in-memory only", "key", key, "error", err)
	}
}
