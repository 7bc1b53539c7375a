// Package config provides configuration management for the dispatcher.
// Configuration is loaded from YAML files with environment variable
// substitution, validated before use, and optionally watched for changes.
package config

import (
	"fmt"
	"time"
)

// Dispatcher modes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Listener engines.
const (
	EngineNetHTTP  = "nethttp"
	EngineFastHTTP = "fasthttp"
)

// Router match cache policies.
const (
	CachePolicyLRU  = "lru"
	CachePolicyNone = "none"
)

// Digest cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Policy effects.
const (
	PolicyEffectAllow = "allow"
	PolicyEffectDeny  = "deny"
)

// Config holds all configuration settings for the dispatcher.
type Config struct {
	// ServiceName identifies this instance in logs, metrics, and traces.
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`

	// Mode gates error message detail in responses: development returns
	// full messages, production returns generic ones.
	Mode string `json:"mode" yaml:"mode"`

	Server        ServerConfig        `json:"server" yaml:"server"`
	Router        RouterConfig        `json:"router" yaml:"router"`
	Pool          PoolConfig          `json:"pool" yaml:"pool"`
	Uploads       UploadsConfig       `json:"uploads" yaml:"uploads"`
	Cache         CacheConfig         `json:"cache" yaml:"cache"`
	Admin         AdminConfig         `json:"admin" yaml:"admin"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ServerConfig configures the request listener.
type ServerConfig struct {
	// Listen is the host:port the listener binds to.
	Listen string `json:"listen" yaml:"listen"`

	// Engine selects the transport adapter: nethttp or fasthttp.
	Engine string `json:"engine" yaml:"engine"`

	ReadTimeout     Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    Duration `json:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout     Duration `json:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	// MaxBodySize caps request body size in bytes. Zero means the
	// engine default.
	MaxBodySize int64 `json:"maxBodySize" yaml:"maxBodySize"`
}

// RouterConfig configures route matching.
type RouterConfig struct {
	// CacheCapacity is the maximum number of match cache entries.
	// Zero disables the cache.
	CacheCapacity int `json:"cacheCapacity" yaml:"cacheCapacity"`

	// CachePolicy selects the eviction policy: lru or none.
	// The none policy stops inserting once the cache is full.
	CachePolicy string `json:"cachePolicy" yaml:"cachePolicy"`
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Workers is the number of pool workers. Must be at least 1.
	Workers int `json:"workers" yaml:"workers"`

	// QueueCapacity bounds the pending task queue. Submissions beyond
	// this are rejected immediately.
	QueueCapacity int `json:"queueCapacity" yaml:"queueCapacity"`

	// TaskTimeout is the per-task execution budget, measured from
	// worker assignment.
	TaskTimeout Duration `json:"taskTimeout" yaml:"taskTimeout"`

	// RestartDelay is the wait before respawning a crashed worker.
	RestartDelay Duration `json:"restartDelay" yaml:"restartDelay"`

	// HealthInterval is the period between worker health probes.
	HealthInterval Duration `json:"healthInterval" yaml:"healthInterval"`

	// HealthTimeout is the response budget for a single probe.
	HealthTimeout Duration `json:"healthTimeout" yaml:"healthTimeout"`

	// ShutdownGrace is the per-worker wait during shutdown before the
	// worker is abandoned.
	ShutdownGrace Duration `json:"shutdownGrace" yaml:"shutdownGrace"`
}

// UploadsConfig configures multipart upload handling.
type UploadsConfig struct {
	// Policies are evaluated against each uploaded file in priority
	// order. An empty list admits everything.
	Policies []PolicyRule `json:"policies" yaml:"policies"`
}

// PolicyRule is a single CEL upload validation rule.
type PolicyRule struct {
	Name string `json:"name" yaml:"name"`

	// Expression is a CEL expression over the file and request
	// attributes, evaluating to a boolean.
	Expression string `json:"expression" yaml:"expression"`

	// Effect is applied when the expression evaluates true: allow or deny.
	Effect string `json:"effect" yaml:"effect"`

	// Priority orders evaluation; lower values run first.
	Priority int `json:"priority" yaml:"priority"`
}

// CacheConfig configures the content digest cache.
type CacheConfig struct {
	// Backend selects the store: memory or redis.
	Backend string `json:"backend" yaml:"backend"`

	// Capacity is the maximum entry count for the memory backend.
	Capacity int `json:"capacity" yaml:"capacity"`

	// TTL is the entry lifetime. Zero means no expiry.
	TTL Duration `json:"ttl" yaml:"ttl"`

	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Address     string   `json:"address" yaml:"address"`
	Password    string   `json:"password" yaml:"password"`
	DB          int      `json:"db" yaml:"db"`
	DialTimeout Duration `json:"dialTimeout" yaml:"dialTimeout"`

	// KeyPrefix namespaces all cache keys. Defaults to "velox:".
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// AdminConfig configures the admin plane.
type AdminConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Listen  string `json:"listen" yaml:"listen"`
}

// ObservabilityConfig configures logging, metrics, and tracing.
type ObservabilityConfig struct {
	Log     LogSettings     `json:"log" yaml:"log"`
	Metrics MetricsSettings `json:"metrics" yaml:"metrics"`
	Tracing TracingSettings `json:"tracing" yaml:"tracing"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	Output string `json:"output" yaml:"output"`
}

// MetricsSettings configures prometheus metrics.
type MetricsSettings struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// TracingSettings configures OpenTelemetry tracing.
type TracingSettings struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Endpoint     string  `json:"endpoint" yaml:"endpoint"`
	SamplingRate float64 `json:"samplingRate" yaml:"samplingRate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "velox",
		ServiceVersion: "1.0.0",
		Mode:           ModeDevelopment,

		Server: ServerConfig{
			Listen:          ":8080",
			Engine:          EngineNetHTTP,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			MaxBodySize:     32 << 20, // 32 MB
		},

		Router: RouterConfig{
			CacheCapacity: 10000,
			CachePolicy:   CachePolicyLRU,
		},

		Pool: PoolConfig{
			Workers:        4,
			QueueCapacity:  1000,
			TaskTimeout:    Duration(30 * time.Second),
			RestartDelay:   Duration(time.Second),
			HealthInterval: Duration(5 * time.Second),
			HealthTimeout:  Duration(5 * time.Second),
			ShutdownGrace:  Duration(5 * time.Second),
		},

		Uploads: UploadsConfig{
			Policies: nil,
		},

		Cache: CacheConfig{
			Backend:  CacheBackendMemory,
			Capacity: 10000,
			TTL:      Duration(10 * time.Minute),
			Redis: RedisConfig{
				Address:     "localhost:6379",
				Password:    "",
				DB:          0,
				DialTimeout: Duration(5 * time.Second),
				KeyPrefix:   "velox:",
			},
		},

		Admin: AdminConfig{
			Enabled: true,
			Listen:  ":9090",
		},

		Observability: ObservabilityConfig{
			Log: LogSettings{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Metrics: MetricsSettings{
				Enabled:   true,
				Namespace: "velox",
			},
			Tracing: TracingSettings{
				Enabled:      false,
				Endpoint:     "localhost:4317",
				SamplingRate: 1.0,
			},
		},
	}
}

// Development reports whether the dispatcher runs in development mode.
func (c *Config) Development() bool {
	return c.Mode != ModeProduction
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Redacted returns a deep copy with secret values masked, suitable for
// exposing through the admin plane.
func (c *Config) Redacted() *Config {
	out := *c
	out.Uploads.Policies = append([]PolicyRule(nil), c.Uploads.Policies...)
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = "[REDACTED]"
	}
	return &out
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Service: %s/%s, Mode: %s, Listen: %s (%s), Workers: %d, Queue: %d, CachePolicy: %s, CacheBackend: %s}",
		c.ServiceName, c.ServiceVersion, c.Mode,
		c.Server.Listen, c.Server.Engine,
		c.Pool.Workers, c.Pool.QueueCapacity,
		c.Router.CachePolicy, c.Cache.Backend,
	)
}
