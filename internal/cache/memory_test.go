package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/observability"
)

func newTestMemoryCache(t *testing.T, capacity int, ttl time.Duration) *memoryCache {
	t.Helper()

	cfg := &config.CacheConfig{
		Backend:  config.CacheBackendMemory,
		Capacity: capacity,
		TTL:      config.Duration(ttl),
	}

	c := newMemoryCache(cfg, observability.NopLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	err := c.Set(ctx, "key1", []byte("value1"), time.Minute)
	require.NoError(t, err)

	value, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), value)
}

func TestMemoryCache_Get_Miss(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)

	_, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	err := c.Set(ctx, "key1", []byte("value1"), time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Set_Update(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Set(ctx, "key1", []byte("value2"), time.Minute))

	value, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value2"), value)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Size)
}

func TestMemoryCache_Set_DefaultTTL(t *testing.T) {
	c := newTestMemoryCache(t, 100, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 0))

	value, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), value)
}

func TestMemoryCache_Set_NoExpiry(t *testing.T) {
	// Default TTL of zero means entries never expire.
	c := newTestMemoryCache(t, 100, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 0))

	c.cleanup()

	_, err := c.Get(ctx, "key1")
	assert.NoError(t, err)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "key1"))

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Delete_NonExistent(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)

	assert.NoError(t, c.Delete(context.Background(), "nonexistent"))
}

func TestMemoryCache_Exists(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "present", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "expired", []byte("v"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	ok, err := c.Exists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Exists(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestMemoryCache(t, 3, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	// Touch a so b becomes the least recently used entry.
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "d", []byte("4"), time.Minute))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)

	for _, key := range []string{"a", "c", "d"} {
		_, err = c.Get(ctx, key)
		assert.NoError(t, err, "key %q should have survived eviction", key)
	}

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Size)
}

func TestMemoryCache_CapacityDefault(t *testing.T) {
	c := newTestMemoryCache(t, 0, time.Minute)
	assert.Equal(t, 10000, c.capacity)
}

func TestMemoryCache_Cleanup(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "stays", []byte("v"), time.Hour))
	require.NoError(t, c.Set(ctx, "goes", []byte("v"), time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	c.cleanup()

	c.mu.Lock()
	_, stays := c.items["stays"]
	_, goes := c.items["goes"]
	c.mu.Unlock()

	assert.True(t, stays)
	assert.False(t, goes)
}

func TestMemoryCache_Stats(t *testing.T) {
	c := newTestMemoryCache(t, 100, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))

	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
	assert.InDelta(t, 66.67, stats.HitRate(), 0.01)
}

func TestMemoryCache_Close(t *testing.T) {
	cfg := &config.CacheConfig{
		Backend:  config.CacheBackendMemory,
		Capacity: 100,
		TTL:      config.Duration(time.Minute),
	}
	c := newMemoryCache(cfg, observability.NopLogger())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Close())

	// Entries are dropped on close.
	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := newTestMemoryCache(t, 1000, 5*time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%10)
			_ = c.Set(ctx, key, []byte("value"), time.Minute)
			_, _ = c.Get(ctx, key)
			_, _ = c.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, int64(10), stats.Size)
}
