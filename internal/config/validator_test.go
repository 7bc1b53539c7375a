package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is nil")
}

func TestValidateConfig_Default(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestValidateConfig_Root(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: "serviceName is required",
		},
		{
			name:    "missing mode",
			mutate:  func(c *Config) { c.Mode = "" },
			wantErr: "mode is required",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "staging" },
			wantErr: "mode must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Server(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.Server.Listen = "no-port" },
			wantErr: "server.listen",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Server.Engine = "quic" },
			wantErr: "server.engine",
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeout = Duration(-time.Second) },
			wantErr: "server.readTimeout",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "server.shutdownTimeout",
		},
		{
			name:    "negative body size",
			mutate:  func(c *Config) { c.Server.MaxBodySize = -1 },
			wantErr: "server.maxBodySize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Router(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "negative cache capacity",
			mutate:  func(c *Config) { c.Router.CacheCapacity = -1 },
			wantErr: "router.cacheCapacity",
		},
		{
			name:    "unknown cache policy",
			mutate:  func(c *Config) { c.Router.CachePolicy = "fifo" },
			wantErr: "router.cachePolicy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("zero capacity disables cache", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Router.CacheCapacity = 0
		assert.NoError(t, ValidateConfig(cfg))
	})
}

func TestValidateConfig_Pool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Pool.Workers = 0 },
			wantErr: "pool.workers",
		},
		{
			name:    "zero queue capacity",
			mutate:  func(c *Config) { c.Pool.QueueCapacity = 0 },
			wantErr: "pool.queueCapacity",
		},
		{
			name:    "zero task timeout",
			mutate:  func(c *Config) { c.Pool.TaskTimeout = 0 },
			wantErr: "pool.taskTimeout",
		},
		{
			name:    "negative restart delay",
			mutate:  func(c *Config) { c.Pool.RestartDelay = Duration(-time.Second) },
			wantErr: "pool.restartDelay",
		},
		{
			name:    "zero health interval",
			mutate:  func(c *Config) { c.Pool.HealthInterval = 0 },
			wantErr: "pool.healthInterval",
		},
		{
			name:    "zero shutdown grace",
			mutate:  func(c *Config) { c.Pool.ShutdownGrace = 0 },
			wantErr: "pool.shutdownGrace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Uploads(t *testing.T) {
	t.Parallel()

	valid := PolicyRule{
		Name:       "deny-large",
		Expression: "file.size > 1048576",
		Effect:     PolicyEffectDeny,
	}

	t.Run("valid rules", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Uploads.Policies = []PolicyRule{
			valid,
			{Name: "allow-images", Expression: `file.contentType.startsWith("image/")`, Effect: PolicyEffectAllow, Priority: 10},
		}
		assert.NoError(t, ValidateConfig(cfg))
	})

	tests := []struct {
		name    string
		rules   []PolicyRule
		wantErr string
	}{
		{
			name:    "missing name",
			rules:   []PolicyRule{{Expression: "true", Effect: PolicyEffectAllow}},
			wantErr: "policy name is required",
		},
		{
			name:    "duplicate name",
			rules:   []PolicyRule{valid, valid},
			wantErr: "duplicate policy name",
		},
		{
			name:    "missing expression",
			rules:   []PolicyRule{{Name: "empty", Effect: PolicyEffectDeny}},
			wantErr: "expression is required",
		},
		{
			name:    "unknown effect",
			rules:   []PolicyRule{{Name: "odd", Expression: "true", Effect: "audit"}},
			wantErr: "effect must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			cfg.Uploads.Policies = tt.rules
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_Cache(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: "cache.backend",
		},
		{
			name: "memory with zero capacity",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendMemory
				c.Cache.Capacity = 0
			},
			wantErr: "cache.capacity",
		},
		{
			name: "redis without address",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.Address = ""
			},
			wantErr: "cache.redis.address",
		},
		{
			name: "redis negative db",
			mutate: func(c *Config) {
				c.Cache.Backend = CacheBackendRedis
				c.Cache.Redis.DB = -1
			},
			wantErr: "cache.redis.db",
		},
		{
			name:    "negative ttl",
			mutate:  func(c *Config) { c.Cache.TTL = Duration(-time.Minute) },
			wantErr: "cache.ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid redis backend", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Cache.Backend = CacheBackendRedis
		assert.NoError(t, ValidateConfig(cfg))
	})
}

func TestValidateConfig_Admin(t *testing.T) {
	t.Parallel()

	t.Run("bad listen when enabled", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Admin.Listen = "bogus"
		err := ValidateConfig(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin.listen")
	})

	t.Run("listen ignored when disabled", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Admin.Enabled = false
		cfg.Admin.Listen = "bogus"
		assert.NoError(t, ValidateConfig(cfg))
	})
}

func TestValidateConfig_Observability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Observability.Log.Level = "verbose" },
			wantErr: "observability.log.level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Observability.Log.Format = "xml" },
			wantErr: "observability.log.format",
		},
		{
			name:    "empty log output",
			mutate:  func(c *Config) { c.Observability.Log.Output = "" },
			wantErr: "observability.log.output",
		},
		{
			name: "metrics without namespace",
			mutate: func(c *Config) {
				c.Observability.Metrics.Enabled = true
				c.Observability.Metrics.Namespace = ""
			},
			wantErr: "observability.metrics.namespace",
		},
		{
			name: "tracing without endpoint",
			mutate: func(c *Config) {
				c.Observability.Tracing.Enabled = true
				c.Observability.Tracing.Endpoint = ""
			},
			wantErr: "observability.tracing.endpoint",
		},
		{
			name:    "sampling rate out of range",
			mutate:  func(c *Config) { c.Observability.Tracing.SamplingRate = 1.5 },
			wantErr: "observability.tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidationErrors_Aggregation(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Pool.Workers = 0
	cfg.Router.CachePolicy = "fifo"
	cfg.Mode = "staging"

	err := ValidateConfig(cfg)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
	assert.Contains(t, err.Error(), "3 validation errors")
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	withPath := &ValidationError{Path: "pool.workers", Message: "too few"}
	assert.Equal(t, "pool.workers: too few", withPath.Error())

	noPath := &ValidationError{Message: "broken"}
	assert.Equal(t, "broken", noPath.Error())
}

func TestValidationErrors_Empty(t *testing.T) {
	t.Parallel()

	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())
}
