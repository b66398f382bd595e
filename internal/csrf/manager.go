// Package csrf implements both halves of the double-submit-cookie defense:
// the Manager tracks the most recently issued token on the client side and
// echoes it into outgoing request headers, while the Issuer mints and stamps
// fresh tokens onto responses at the edge.
package csrf

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

const (
	// HeaderName carries the token in both directions: the server rotates it
	// via a response header, the client echoes it on state-changing requests.
	HeaderName = "X-CSRF-Token"

	// CookieName is the cookie half of the double-submit pair, set by the
	// Issuer and compared against HeaderName by the edge gate.
	CookieName = "csrf_token"

	storageKey = "catchup:csrf_token"
)

// Manager owns the client-side CSRF token lifecycle: capture from response
// headers, persistence, and injection into outgoing headers. One instance is
// constructed at the composition root and shared by every call site; updates
// are last-write-wins under the mutex.
type Manager struct {
	kv  storage.KV
	log *zap.SugaredLogger

	mu     sync.Mutex
	loaded bool
	token  string
}

func NewManager(kv storage.KV, log *zap.SugaredLogger) *Manager {
	return &Manager{kv: kv, log: log}
}

// ExtractToken captures a rotated token from a response header. An absent or
// empty header leaves the stored token unchanged. ExtractToken never fails:
// a storage write error is logged and the in-memory token still rotates, so
// token capture can never block the response pipeline.
func (m *Manager) ExtractToken(ctx context.Context, h http.Header) {
	tok := h.Get(HeaderName)
	if tok == "" {
		m.log.Debugw("no CSRF token in response headers")
		return
	}

	m.mu.Lock()
	m.loadLocked(ctx)
	m.token = tok
	m.mu.Unlock()

	if err := m.kv.Set(ctx, storageKey, tok); err != nil {
		m.log.Warnw("failed to persist CSRF token, keeping in-memory copy only", "error", err)
	}
}

// Token returns the most recently observed token, or "" when none exists.
func (m *Manager) Token(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked(ctx)
	return m.token
}

// ClearToken drops the token from memory and storage. Called on logout and
// after a detected CSRF failure.
func (m *Manager) ClearToken(ctx context.Context) {
	m.mu.Lock()
	m.loaded = true
	m.token = ""
	m.mu.Unlock()

	if err := m.kv.Delete(ctx, storageKey); err != nil {
		m.log.Warnw("failed to clear persisted CSRF token", "error", err)
	}
}

// AddToHeaders returns a copy of h with the CSRF header set when a token
// exists. The input headers are never mutated; without a token the copy is
// returned unchanged.
func (m *Manager) AddToHeaders(ctx context.Context, h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}

	if tok := m.Token(ctx); tok != "" {
		out.Set(HeaderName, tok)
	}
	return out
}

// loadLocked restores the persisted token exactly once. Callers must hold
// the mutex.
func (m *Manager) loadLocked(ctx context.Context) {
	if m.loaded {
		return
	}
	m.loaded = true

	value, err := m.kv.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.log.Warnw("failed to load persisted CSRF token", "error", err)
		}
		return
	}
	m.token = value
}
