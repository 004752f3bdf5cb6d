// Package redis provides a SearchCache backed by Redis, holding serialized
// hybrid-search results with an optional TTL.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/hypergraphrag/store"
)

// SearchCache stores serialized search results in Redis. Every cached key is
// also tracked in an index set so Invalidate can drop all entries at once.
type SearchCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configuration for the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "hypergraphrag:"
	TTL      time.Duration // Expiration for cached results, default 0 (no expiration)
}

// NewSearchCache creates a Redis search cache
func NewSearchCache(opts Options) *SearchCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "hypergraphrag:"
	}

	return &SearchCache{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (c *SearchCache) resultKey(key string) string {
	return fmt.Sprintf("%ssearch:%s", c.prefix, key)
}

func (c *SearchCache) indexKey() string {
	return c.prefix + "search:keys"
}

// Get fetches a cached result; store.ErrCacheMiss when absent
func (c *SearchCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.resultKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to load cached result: %w", err)
	}
	return data, nil
}

// Set stores a result and tracks its key in the index set
func (c *SearchCache) Set(ctx context.Context, key string, value []byte) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.resultKey(key), value, c.ttl)
	pipe.SAdd(ctx, c.indexKey(), key)
	if c.ttl > 0 {
		pipe.Expire(ctx, c.indexKey(), c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Invalidate drops every cached result
func (c *SearchCache) Invalidate(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list cached keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, c.resultKey(key))
	}
	pipe.Del(ctx, c.indexKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *SearchCache) Close() error {
	return c.client.Close()
}
