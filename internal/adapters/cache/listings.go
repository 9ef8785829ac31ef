package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingsKey = "lots:listings"

// ListingsCache caches the serialized public listings payload in Redis.
// Every lot read materializes its full bid history, so the hot listing
// endpoint is the one place that amplification is worth absorbing.
//
// The cache is strictly an optimization: any Redis failure is logged and
// treated as a miss.
type ListingsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewListingsCache creates a new listings cache
func NewListingsCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ListingsCache {
	return &ListingsCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns the cached listings payload, if any
func (c *ListingsCache) Get(ctx context.Context) ([]byte, bool) {
	payload, err := c.rdb.Get(ctx, listingsKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Listings cache read failed", "error", err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores the listings payload with the configured TTL
func (c *ListingsCache) Set(ctx context.Context, payload []byte) {
	if err := c.rdb.Set(ctx, listingsKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("Listings cache write failed", "error", err)
	}
}

// Invalidate drops the cached payload. Called on every write that changes
// what the listings show: lot creation, accepted bids, settlement.
func (c *ListingsCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, listingsKey).Err(); err != nil {
		c.logger.Warn("Listings cache invalidation failed", "error", err)
	}
}
