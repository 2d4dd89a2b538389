// Package cache holds the optional Redis cache for container listings.
// Listings are the hottest read in the dashboard and the only query doing a
// join; everything else goes straight to Postgres.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingCache caches serialized per-owner container listings. A nil
// *ListingCache (or one built from an empty address) is a no-op, so callers
// never need to branch on whether caching is configured.
type ListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a cache backed by the Redis instance at addr, or an inactive
// cache when addr is empty.
func New(addr string, ttl time.Duration) *ListingCache {
	if addr == "" {
		return &ListingCache{}
	}
	return &ListingCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func key(userID string) string {
	return "containers:" + userID
}

// Get returns the cached listing payload for userID, or ok=false on miss,
// error, or inactive cache. Cache errors are deliberately indistinguishable
// from misses; the caller falls through to the database either way.
func (c *ListingCache) Get(ctx context.Context, userID string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	val, err := c.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores the listing payload for userID.
func (c *ListingCache) Set(ctx context.Context, userID string, payload []byte) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, key(userID), payload, c.ttl)
}

// Invalidate drops the cached listing for userID. Called after any mutation
// that changes container rows or their file counts.
func (c *ListingCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, key(userID))
}
