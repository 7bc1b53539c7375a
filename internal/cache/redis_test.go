package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrexdev/velox/internal/config"
	"github.com/wyrexdev/velox/internal/observability"
)

// setupMiniRedis starts an in-process redis server for the test.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr
}

func newTestRedisCache(t *testing.T, mr *miniredis.Miniredis, prefix string) *redisCache {
	t.Helper()

	cfg := &config.CacheConfig{
		Backend: config.CacheBackendRedis,
		TTL:     config.Duration(5 * time.Minute),
		Redis: config.RedisConfig{
			Address:   mr.Addr(),
			KeyPrefix: prefix,
		},
	}

	c, err := newRedisCache(cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewRedisCache(t *testing.T) {
	mr := setupMiniRedis(t)

	tests := []struct {
		name      string
		cfg       *config.CacheConfig
		expectErr bool
	}{
		{
			name: "valid config",
			cfg: &config.CacheConfig{
				Backend: config.CacheBackendRedis,
				TTL:     config.Duration(5 * time.Minute),
				Redis: config.RedisConfig{
					Address: mr.Addr(),
				},
			},
		},
		{
			name: "with key prefix",
			cfg: &config.CacheConfig{
				Backend: config.CacheBackendRedis,
				Redis: config.RedisConfig{
					Address:   mr.Addr(),
					KeyPrefix: "test:",
				},
			},
		},
		{
			name: "with dial timeout",
			cfg: &config.CacheConfig{
				Backend: config.CacheBackendRedis,
				Redis: config.RedisConfig{
					Address:     mr.Addr(),
					DialTimeout: config.Duration(2 * time.Second),
				},
			},
		},
		{
			name: "empty address",
			cfg: &config.CacheConfig{
				Backend: config.CacheBackendRedis,
			},
			expectErr: true,
		},
		{
			name: "connection refused",
			cfg: &config.CacheConfig{
				Backend: config.CacheBackendRedis,
				Redis: config.RedisConfig{
					Address:     "localhost:1",
					DialTimeout: config.Duration(time.Second),
				},
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := newRedisCache(tt.cfg, observability.NopLogger())

			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, c)
			_ = c.Close()
		})
	}
}

func TestRedisCache_DefaultKeyPrefix(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "")

	require.NoError(t, c.Set(context.Background(), "digest", []byte("v"), time.Minute))

	assert.True(t, mr.Exists("velox:digest"))
}

func TestRedisCache_Get(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := c.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("hit", func(t *testing.T) {
		require.NoError(t, mr.Set("test:existing", "value123"))

		val, err := c.Get(ctx, "existing")
		require.NoError(t, err)
		assert.Equal(t, []byte("value123"), val)
	})
}

func TestRedisCache_Set(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{"with TTL", "key1", []byte("value1"), time.Minute},
		{"zero TTL uses default", "key2", []byte("value2"), 0},
		{"empty value", "key3", []byte(""), time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, tt.key, tt.value, tt.ttl))

			val, err := c.Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.value, val)
		})
	}

	// The configured default TTL is applied when the caller passes zero.
	assert.Equal(t, 5*time.Minute, mr.TTL("test:key2"))
}

func TestRedisCache_Expiry(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "transient", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := c.Get(ctx, "transient")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "to-delete", []byte("value"), time.Minute))
	require.NoError(t, c.Delete(ctx, "to-delete"))

	_, err := c.Get(ctx, "to-delete")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete_NonExistent(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")

	assert.NoError(t, c.Delete(context.Background(), "nonexistent"))
}

func TestRedisCache_Exists(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "present", []byte("v"), time.Minute))

	ok, err := c.Exists(ctx, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_ContextCanceled(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, context.Canceled)

	err = c.Set(ctx, "key", []byte("v"), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisCache_Stats(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "test:")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("v"), time.Minute))

	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_DigestKeys(t *testing.T) {
	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr, "velox:")
	ctx := context.Background()

	digest := "4deadbeef0"
	verdictKey := ValidationKey(digest, "avatar", "a.png", "image/png")

	require.NoError(t, c.Set(ctx, verdictKey, []byte(`{"allowed":true}`), 0))
	require.NoError(t, c.Set(ctx, MetadataKey(digest), []byte(`{"size":10}`), 0))

	val, err := c.Get(ctx, verdictKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"allowed":true}`, string(val))

	ok, err := c.Exists(ctx, MetadataKey(digest))
	require.NoError(t, err)
	assert.True(t, ok)
}
