package redis

import (
	"context"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/config"

	"github.com/go-redis/redis/v8"
)

// Client type alias so callers do not need a second redis import
type Client = redis.Client

// NewRedisClient creates a Redis client.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	return client.Close()
}
