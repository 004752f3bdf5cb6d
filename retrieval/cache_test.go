package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/store"
)

func TestFIFOCacheEvictsOldestFirst(t *testing.T) {
	c := newFIFOCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "first", []byte("1")))
	require.NoError(t, c.Set(ctx, "second", []byte("2")))
	require.NoError(t, c.Set(ctx, "third", []byte("3")))

	_, err := c.Get(ctx, "first")
	assert.ErrorIs(t, err, store.ErrCacheMiss)

	data, err := c.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), data)
	data, err = c.Get(ctx, "third")
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), data)
}

func TestFIFOCacheOverwriteKeepsAge(t *testing.T) {
	c := newFIFOCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "first", []byte("1")))
	require.NoError(t, c.Set(ctx, "second", []byte("2")))

	// Overwriting an existing key must not evict and must not refresh its
	// place in the eviction order.
	require.NoError(t, c.Set(ctx, "first", []byte("1b")))
	data, err := c.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, []byte("1b"), data)

	require.NoError(t, c.Set(ctx, "third", []byte("3")))
	_, err = c.Get(ctx, "first")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
	_, err = c.Get(ctx, "second")
	require.NoError(t, err)
}

func TestFIFOCacheInvalidateClearsAll(t *testing.T) {
	c := newFIFOCache(4)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	require.NoError(t, c.Invalidate(ctx))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}
