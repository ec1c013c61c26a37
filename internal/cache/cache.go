// Package cache keeps recent Adzuna results in Redis and provides the
// distributed lock that keeps scheduled digests single-flight.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"jobmate/feed-service/internal/model"
)

const keyPrefix = "feed:listings:"

// Source is anything that can fetch raw listings for a search.
type Source interface {
	Fetch(ctx context.Context, params model.SearchParams) ([]model.RawListing, error)
}

// KV is the subset of the Redis client used for result caching.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSource serves repeated searches from Redis for ttl. Redis failures
// never fail a search: they are logged and the underlying source is used.
type CachedSource struct {
	kv  KV
	src Source
	ttl time.Duration
}

// NewCachedSource wraps src. A zero ttl disables caching.
func NewCachedSource(kv KV, src Source, ttl time.Duration) *CachedSource {
	return &CachedSource{kv: kv, src: src, ttl: ttl}
}

// Key returns the deterministic cache key for params.
func Key(params model.SearchParams) string {
	b, _ := json.Marshal(params)
	return keyPrefix + strconv.FormatUint(xxhash.Sum64(b), 16)
}

// Fetch returns cached listings for params, falling through to the source
// on a miss. Empty results are not cached.
func (c *CachedSource) Fetch(ctx context.Context, params model.SearchParams) ([]model.RawListing, error) {
	if c.ttl <= 0 {
		return c.src.Fetch(ctx, params)
	}

	key := Key(params)
	data, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var listings []model.RawListing
		if err := json.Unmarshal(data, &listings); err == nil {
			return listings, nil
		}
		slog.Warn("cache entry unreadable, refetching", "component", "cache", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("cache get failed", "component", "cache", "key", key, "err", err)
	}

	listings, err := c.src.Fetch(ctx, params)
	if err != nil || len(listings) == 0 {
		return listings, err
	}

	if data, err := json.Marshal(listings); err == nil {
		if err := c.kv.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("cache set failed", "component", "cache", "key", key, "err", err)
		}
	}
	return listings, nil
}
