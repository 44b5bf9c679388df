package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DestinationCache short-circuits store lookups for hot keys. It is purely a
// performance layer: every error degrades to a miss.
type DestinationCache interface {
	Get(ctx context.Context, key string) (url string, ok bool)
	Set(ctx context.Context, key, url string, ttl time.Duration)
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	url, err := c.rdb.Get(ctx, cacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Warn("reading destination cache", "key", key, "err", err)
		return "", false
	}
	return url, true
}

func (c *RedisCache) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, cacheKey(key), url, ttl).Err(); err != nil {
		slog.Warn("writing destination cache", "key", key, "err", err)
	}
}

func cacheKey(key string) string {
	return "url:" + key
}
