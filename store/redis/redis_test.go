package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/hypergraphrag/store"
)

func newTestCache(t *testing.T, ttl time.Duration) (*SearchCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cache := NewSearchCache(Options{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestSetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "query-1", []byte(`{"hits":3}`)))

	data, err := cache.Get(ctx, "query-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"hits":3}`), data)
}

func TestGetMiss(t *testing.T) {
	cache, _ := newTestCache(t, 0)

	_, err := cache.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}

func TestInvalidateDropsEverything(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", []byte("a")))
	require.NoError(t, cache.Set(ctx, "q2", []byte("b")))

	require.NoError(t, cache.Invalidate(ctx))

	_, err := cache.Get(ctx, "q1")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
	_, err = cache.Get(ctx, "q2")
	assert.ErrorIs(t, err, store.ErrCacheMiss)

	// Invalidating an empty cache is fine.
	assert.NoError(t, cache.Invalidate(ctx))
}

func TestEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", []byte("a")))

	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "q1")
	assert.ErrorIs(t, err, store.ErrCacheMiss)
}
