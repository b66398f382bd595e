package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV is the persistence side-channel used by the token store and the CSRF
// manager. Implementations must be safe for concurrent use. Callers treat
// every error other than ErrNotFound as a storage degradation: they log it
// and fall back to their in-memory copy.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
