package segmentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountCache keeps segment lead-count estimates in Redis with a TTL. The
// count is advisory: a miss or expired key just means the next read
// recomputes it.
type CountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCountCache creates a cache on an existing Redis client. A zero ttl
// defaults to 10 minutes.
func NewCountCache(rdb *redis.Client, ttl time.Duration) *CountCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CountCache{rdb: rdb, ttl: ttl}
}

func countKey(segmentID string) string {
	return "segment:count:" + segmentID
}

// Get returns the cached count and whether the key was present.
func (c *CountCache) Get(ctx context.Context, segmentID string) (int, bool, error) {
	val, err := c.rdb.Get(ctx, countKey(segmentID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt count for %s: %w", segmentID, err)
	}
	return count, true, nil
}

// Set stores a count under the cache TTL.
func (c *CountCache) Set(ctx context.Context, segmentID string, count int) error {
	return c.rdb.Set(ctx, countKey(segmentID), strconv.Itoa(count), c.ttl).Err()
}

// Invalidate drops the cached count, typically after criteria change or the
// segment is deleted.
func (c *CountCache) Invalidate(ctx context.Context, segmentID string) error {
	return c.rdb.Del(ctx, countKey(segmentID)).Err()
}
