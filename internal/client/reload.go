package client

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

const (
	reloadMarkerKey   = "catchup:csrf_reload_attempt"
	reloadGuardWindow = 10 * time.Second
)

// reloadGuard bounds the CSRF-recovery reload to one attempt per window. The
// attempt timestamp lives in the same KV as the tokens, so the "retry once,
// then give up" policy is testable without real reloads and survives process
// restarts.
type reloadGuard struct {
	kv  storage.KV
	log *zap.SugaredLogger
	now func() time.Time
}

func newReloadGuard(kv storage.KV, log *zap.SugaredLogger) *reloadGuard {
	return &reloadGuard{kv: kv, log: log, now: time.Now}
}

// tryAcquire reports whether a reload may happen now, recording the attempt
// when it does. Storage errors never block the first attempt.
func (g *reloadGuard) tryAcquire(ctx context.Context) bool {
	raw, err := g.kv.Get(ctx, reloadMarkerKey)
	switch {
	case err == nil:
		ts, parseErr := time.Parse(time.RFC3339Nano, raw)
		if parseErr == nil && g.now().Sub(ts) < reloadGuardWindow {
			return false
		}
	case !errors.Is(err, storage.ErrNotFound):
		g.log.Warnw("failed to read reload marker", "error", err)
	}

	if err := g.kv.Set(ctx, reloadMarkerKey, g.now().Format(time.RFC3339Nano)); err != nil {
		g.log.Warnw("failed to persist reload marker", "error", err)
	}
	return true
}
