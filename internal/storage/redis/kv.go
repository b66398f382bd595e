package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/catchup-feed/edge-gateway/internal/storage"
)

type KV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKV wraps a redis client as a storage.KV. A zero ttl stores values
// without expiration.
func NewKV(client *redis.Client, ttl time.Duration) *KV {
	return &KV{client: client, ttl: ttl}
}

func (s *KV) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", storage.ErrNotFound
	} else if err != nil {
		return "", err
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, s.ttl).Err()
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
