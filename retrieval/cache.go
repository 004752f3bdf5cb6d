package retrieval

import (
	"context"
	"sync"

	"github.com/smallnest/hypergraphrag/store"
)

// fifoCache is the built-in bounded result cache. Eviction is first-in
// first-out: the oldest entry makes room before a new one is inserted.
type fifoCache struct {
	mu    sync.Mutex
	max   int
	order []string
	items map[string][]byte
}

func newFIFOCache(max int) *fifoCache {
	return &fifoCache{
		max:   max,
		items: make(map[string][]byte),
	}
}

func (c *fifoCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return nil, store.ErrCacheMiss
	}
	return data, nil
}

func (c *fifoCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		for len(c.items) >= c.max && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = value
	return nil
}

func (c *fifoCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = c.order[:0]
	c.items = make(map[string][]byte)
	return nil
}

func (c *fifoCache) Close() error { return nil }
