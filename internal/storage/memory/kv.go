package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

type KV struct {
	mu     sync.RWMutex
	values map[string]string
	log    *zap.SugaredLogger
}

func NewKV(log *zap.SugaredLogger) *KV {
	return &KV{
		values: make(map[string]string),
		log:    log,
	}
}

func (m *KV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}

	return value, nil
}

func (m *KV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	m.log.Debugw("KV set", "key", key)

	return nil
}

func (m *KV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}
