package vecindex

import "sync"

// embeddingCache is a bounded text-to-vector cache. Eviction is cheap rather
// than LRU-exact: once past the bound a slice of arbitrary entries is dropped
// to bring occupancy under the cleanup mark.
type embeddingCache struct {
	mu    sync.Mutex
	max   int
	items map[string][]float32
}

func newEmbeddingCache(max int) *embeddingCache {
	return &embeddingCache{
		max:   max,
		items: make(map[string][]float32),
	}
}

func (c *embeddingCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.items[text]
	return vec, ok
}

func (c *embeddingCache) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.max {
		target := c.max * 9 / 10
		for key := range c.items {
			if len(c.items) <= target {
				break
			}
			delete(c.items, key)
		}
	}
	c.items[text] = vec
}

func (c *embeddingCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
