package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON product payloads in Redis with a fixed TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds the cache helper. A nil client yields a no-op cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON loads key into dst and reports whether the key existed. A nil or
// unconfigured cache always misses.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedGateway layers the redis cache in front of another Gateway. Cache
// write failures are ignored; the catalog answer is already in hand.
type CachedGateway struct {
	Next  Gateway
	Cache *Cache
}

// Product implements Gateway with read-through caching.
func (g CachedGateway) Product(ctx context.Context, id string) (Product, error) {
	key := "catalog:product:" + id
	var cached Product
	if ok, err := g.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := g.Next.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = g.Cache.SetJSON(ctx, key, p)
	return p, nil
}
