package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, rdb := testRedis(t)
	c := NewRedisCache(rdb)
	ctx := context.Background()

	_, ok := c.Get(ctx, "abc1")
	assert.False(t, ok)

	c.Set(ctx, "abc1", "https://example.com", time.Minute)

	url, ok := c.Get(ctx, "abc1")
	require.True(t, ok)
	assert.Equal(t, "https://example.com", url)
	assert.True(t, mr.Exists("url:abc1"), "entries live under the url: prefix")
}

func TestRedisCacheEntriesExpire(t *testing.T) {
	mr, rdb := testRedis(t)
	c := NewRedisCache(rdb)
	ctx := context.Background()

	c.Set(ctx, "abc1", "https://example.com", time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "abc1")
	assert.False(t, ok)
}

// With Redis down every operation degrades to a miss; resolution must keep
// working off the store alone.
func TestRedisCacheErrorsDegradeToMiss(t *testing.T) {
	mr, rdb := testRedis(t)
	c := NewRedisCache(rdb)
	ctx := context.Background()
	mr.Close()

	c.Set(ctx, "abc1", "https://example.com", time.Minute)
	_, ok := c.Get(ctx, "abc1")
	assert.False(t, ok)
}
