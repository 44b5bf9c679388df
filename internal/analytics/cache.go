package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedAggregator puts a short-TTL Redis cache in front of the aggregator.
// It is a performance layer only: every cache error falls through to the
// store, so correctness never depends on Redis.
type CachedAggregator struct {
	inner *Aggregator
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedAggregator(inner *Aggregator, rdb *redis.Client, ttl time.Duration) *CachedAggregator {
	return &CachedAggregator{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedAggregator) TotalVisits(ctx context.Context, linkKey string) (int64, error) {
	key := fmt.Sprintf("stats:total:%s", linkKey)
	var total int64
	if c.lookup(ctx, key, &total) {
		return total, nil
	}
	total, err := c.inner.TotalVisits(ctx, linkKey)
	if err != nil {
		return 0, err
	}
	c.save(ctx, key, total)
	return total, nil
}

func (c *CachedAggregator) ClicksOverTime(ctx context.Context, linkKey string, days int) ([]DayBucket, error) {
	key := fmt.Sprintf("stats:days:%s:%d", linkKey, days)
	var series []DayBucket
	if c.lookup(ctx, key, &series) {
		return series, nil
	}
	series, err := c.inner.ClicksOverTime(ctx, linkKey, days)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, series)
	return series, nil
}

func (c *CachedAggregator) GroupedByField(ctx context.Context, linkKey, dimension string, days int, include string) ([]FieldBucket, error) {
	key := fmt.Sprintf("stats:group:%s:%s:%d:%s", linkKey, dimension, days, include)
	var buckets []FieldBucket
	if c.lookup(ctx, key, &buckets) {
		return buckets, nil
	}
	buckets, err := c.inner.GroupedByField(ctx, linkKey, dimension, days, include)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, buckets)
	return buckets, nil
}

func (c *CachedAggregator) lookup(ctx context.Context, key string, out any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("reading stats cache", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		slog.Warn("decoding stats cache entry", "key", key, "err", err)
		return false
	}
	return true
}

func (c *CachedAggregator) save(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("writing stats cache", "key", key, "err", err)
	}
}
