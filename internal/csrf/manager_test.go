package csrf

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage/memory"
)

type brokenKV struct{}

func (brokenKV) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("storage unavailable")
}

func (brokenKV) Set(ctx context.Context, key, value string) error {
	return errors.New("storage unavailable")
}

func (brokenKV) Delete(ctx context.Context, key string) error {
	return errors.New("storage unavailable")
}

func newTestManager(t *testing.T) (*Manager, *memory.KV) {
	t.Helper()

	kv := memory.NewKV(zap.NewNop().Sugar())
	return NewManager(kv, zap.NewNop().Sugar()), kv
}

func responseHeaders(token string) http.Header {
	h := make(http.Header)
	if token != "" {
		h.Set(HeaderName, token)
	}
	return h
}

func TestExtractToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("header present always overwrites", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.ExtractToken(ctx, responseHeaders("first"))
		require.Equal(t, "first", m.Token(ctx))

		m.ExtractToken(ctx, responseHeaders("second"))
		require.Equal(t, "second", m.Token(ctx))

		// The rotation is visible through AddToHeaders immediately.
		out := m.AddToHeaders(ctx, make(http.Header))
		require.Equal(t, "second", out.Get(HeaderName))
	})

	t.Run("absent header leaves token unchanged", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.ExtractToken(ctx, responseHeaders("first"))
		m.ExtractToken(ctx, responseHeaders(""))
		require.Equal(t, "first", m.Token(ctx))
	})

	t.Run("storage failure still rotates in memory", func(t *testing.T) {
		m := NewManager(brokenKV{}, zap.NewNop().Sugar())

		m.ExtractToken(ctx, responseHeaders("tok"))
		require.Equal(t, "tok", m.Token(ctx))
	})
}

func TestManagerLoadsPersistedToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, kv := newTestManager(t)
	m.ExtractToken(ctx, responseHeaders("persisted"))

	// A second manager over the same KV sees the token from storage.
	restored := NewManager(kv, zap.NewNop().Sugar())
	require.Equal(t, "persisted", restored.Token(ctx))
}

func TestClearToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, kv := newTestManager(t)
	m.ExtractToken(ctx, responseHeaders("tok"))

	m.ClearToken(ctx)
	require.Empty(t, m.Token(ctx))

	restored := NewManager(kv, zap.NewNop().Sugar())
	require.Empty(t, restored.Token(ctx))
}

func TestAddToHeadersNeverMutatesInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)
	m.ExtractToken(ctx, responseHeaders("tok"))

	in := make(http.Header)
	in.Set("Content-Type", "application/json")

	out := m.AddToHeaders(ctx, in)

	require.Equal(t, "tok", out.Get(HeaderName))
	require.Equal(t, "application/json", out.Get("Content-Type"))

	// The original key set is untouched.
	require.Len(t, in, 1)
	require.Empty(t, in.Get(HeaderName))
}

func TestAddToHeadersWithoutToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m, _ := newTestManager(t)

	in := make(http.Header)
	in.Set("Content-Type", "application/json")

	out := m.AddToHeaders(ctx, in)
	require.Equal(t, in, out)
	require.Empty(t, out.Get(HeaderName))
}
