package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage/memory"
)

func TestReloadGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	log := zap.NewNop().Sugar()

	t.Run("second attempt within window is blocked", func(t *testing.T) {
		guard := newReloadGuard(memory.NewKV(log), log)

		require.True(t, guard.tryAcquire(ctx))
		require.False(t, guard.tryAcquire(ctx))
	})

	t.Run("attempt after window expiry is allowed", func(t *testing.T) {
		guard := newReloadGuard(memory.NewKV(log), log)

		now := time.Now()
		guard.now = func() time.Time { return now }
		require.True(t, guard.tryAcquire(ctx))

		guard.now = func() time.Time { return now.Add(reloadGuardWindow + time.Second) }
		require.True(t, guard.tryAcquire(ctx))
	})

	t.Run("guard state survives a new guard over the same store", func(t *testing.T) {
		kv := memory.NewKV(log)

		first := newReloadGuard(kv, log)
		require.True(t, first.tryAcquire(ctx))

		second := newReloadGuard(kv, log)
		require.False(t, second.tryAcquire(ctx))
	})

	t.Run("garbage marker does not block", func(t *testing.T) {
		kv := memory.NewKV(log)
		require.NoError(t, kv.Set(ctx, reloadMarkerKey, "not a timestamp"))

		guard := newReloadGuard(kv, log)
		require.True(t, guard.tryAcquire(ctx))
	})
}
