package util

import (
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr string
}

// NewRedisConfig reads REDIS_ADDR. An empty address is valid: the process
// falls back to the in-memory storage driver.
func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr: os.Getenv("REDIS_ADDR"),
	}
}

func NewRedisClient(logger *zap.SugaredLogger, cfg *RedisConfig) (*redis.Client, func()) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: "",
		DB:       0,
	})

	logger.Infof("Using redis-backed token storage at %s", cfg.Addr)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Failed to close Redis connection: %v", err)
		} else {
			logger.Info("Redis connection closed successfully.")
		}
	}

	return redisClient, cleanup
}
