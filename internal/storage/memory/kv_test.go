package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

func TestKV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kv := NewKV(zap.NewNop().Sugar())

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", "v1"))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", got)

	require.NoError(t, kv.Set(ctx, "k", "v2"))
	got, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v2", got)

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "k"), "delete is idempotent")
}
