package config

import (
	"fmt"
	"strings"

	"github.com/wyrexdev/velox/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates dispatcher configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a dispatcher configuration.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(cfg)
	v.validateServer(&cfg.Server)
	v.validateRouter(&cfg.Router)
	v.validatePool(&cfg.Pool)
	v.validateUploads(&cfg.Uploads)
	v.validateCache(&cfg.Cache)
	v.validateAdmin(&cfg.Admin)
	v.validateObservability(&cfg.Observability)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validateRoot validates root-level fields.
func (v *Validator) validateRoot(cfg *Config) {
	if cfg.ServiceName == "" {
		v.addError("serviceName", "serviceName is required")
	}

	switch cfg.Mode {
	case ModeDevelopment, ModeProduction:
	case "":
		v.addError("mode", "mode is required")
	default:
		v.addError("mode", fmt.Sprintf("mode must be %q or %q, got %q", ModeDevelopment, ModeProduction, cfg.Mode))
	}
}

// validateServer validates the listener settings.
func (v *Validator) validateServer(server *ServerConfig) {
	if err := util.ValidateListenAddress(server.Listen); err != nil {
		v.addError("server.listen", err.Error())
	}

	switch server.Engine {
	case EngineNetHTTP, EngineFastHTTP:
	default:
		v.addError("server.engine", fmt.Sprintf("engine must be %q or %q, got %q", EngineNetHTTP, EngineFastHTTP, server.Engine))
	}

	if err := util.ValidateDuration(server.ReadTimeout.Duration()); err != nil {
		v.addError("server.readTimeout", err.Error())
	}
	if err := util.ValidateDuration(server.WriteTimeout.Duration()); err != nil {
		v.addError("server.writeTimeout", err.Error())
	}
	if err := util.ValidateDuration(server.IdleTimeout.Duration()); err != nil {
		v.addError("server.idleTimeout", err.Error())
	}
	if err := util.ValidatePositiveDuration(server.ShutdownTimeout.Duration()); err != nil {
		v.addError("server.shutdownTimeout", err.Error())
	}

	if server.MaxBodySize < 0 {
		v.addError("server.maxBodySize", "maxBodySize must be non-negative")
	}
}

// validateRouter validates the match cache settings.
func (v *Validator) validateRouter(router *RouterConfig) {
	if router.CacheCapacity < 0 {
		v.addError("router.cacheCapacity", "cacheCapacity must be non-negative")
	}

	switch router.CachePolicy {
	case CachePolicyLRU, CachePolicyNone:
	default:
		v.addError("router.cachePolicy", fmt.Sprintf("cachePolicy must be %q or %q, got %q", CachePolicyLRU, CachePolicyNone, router.CachePolicy))
	}
}

// validatePool validates the worker pool settings.
func (v *Validator) validatePool(pool *PoolConfig) {
	if pool.Workers < 1 {
		v.addError("pool.workers", "workers must be at least 1")
	}
	if pool.QueueCapacity < 1 {
		v.addError("pool.queueCapacity", "queueCapacity must be at least 1")
	}

	if err := util.ValidatePositiveDuration(pool.TaskTimeout.Duration()); err != nil {
		v.addError("pool.taskTimeout", err.Error())
	}
	if err := util.ValidateDuration(pool.RestartDelay.Duration()); err != nil {
		v.addError("pool.restartDelay", err.Error())
	}
	if err := util.ValidatePositiveDuration(pool.HealthInterval.Duration()); err != nil {
		v.addError("pool.healthInterval", err.Error())
	}
	if err := util.ValidatePositiveDuration(pool.HealthTimeout.Duration()); err != nil {
		v.addError("pool.healthTimeout", err.Error())
	}
	if err := util.ValidatePositiveDuration(pool.ShutdownGrace.Duration()); err != nil {
		v.addError("pool.shutdownGrace", err.Error())
	}
}

// validateUploads validates the upload policy rules.
func (v *Validator) validateUploads(uploads *UploadsConfig) {
	names := make(map[string]bool)

	for i, rule := range uploads.Policies {
		path := fmt.Sprintf("uploads.policies[%d]", i)

		switch {
		case rule.Name == "":
			v.addError(path+".name", "policy name is required")
		case names[rule.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate policy name: %s", rule.Name))
		default:
			names[rule.Name] = true
		}

		if rule.Expression == "" {
			v.addError(path+".expression", "policy expression is required")
		}

		switch rule.Effect {
		case PolicyEffectAllow, PolicyEffectDeny:
		default:
			v.addError(path+".effect", fmt.Sprintf("effect must be %q or %q, got %q", PolicyEffectAllow, PolicyEffectDeny, rule.Effect))
		}
	}
}

// validateCache validates the digest cache settings.
func (v *Validator) validateCache(cache *CacheConfig) {
	switch cache.Backend {
	case CacheBackendMemory:
		if cache.Capacity < 1 {
			v.addError("cache.capacity", "capacity must be at least 1 for the memory backend")
		}
	case CacheBackendRedis:
		if cache.Redis.Address == "" {
			v.addError("cache.redis.address", "address is required for the redis backend")
		} else if err := util.ValidateListenAddress(cache.Redis.Address); err != nil {
			v.addError("cache.redis.address", err.Error())
		}
		if cache.Redis.DB < 0 {
			v.addError("cache.redis.db", "db must be non-negative")
		}
		if err := util.ValidatePositiveDuration(cache.Redis.DialTimeout.Duration()); err != nil {
			v.addError("cache.redis.dialTimeout", err.Error())
		}
	default:
		v.addError("cache.backend", fmt.Sprintf("backend must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, cache.Backend))
	}

	if err := util.ValidateDuration(cache.TTL.Duration()); err != nil {
		v.addError("cache.ttl", err.Error())
	}
}

// validateAdmin validates the admin plane settings.
func (v *Validator) validateAdmin(admin *AdminConfig) {
	if !admin.Enabled {
		return
	}
	if err := util.ValidateListenAddress(admin.Listen); err != nil {
		v.addError("admin.listen", err.Error())
	}
}

// validateObservability validates logging, metrics, and tracing settings.
func (v *Validator) validateObservability(obs *ObservabilityConfig) {
	switch obs.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		v.addError("observability.log.level", fmt.Sprintf("unknown log level %q", obs.Log.Level))
	}

	switch obs.Log.Format {
	case "json", "console":
	default:
		v.addError("observability.log.format", fmt.Sprintf("log format must be \"json\" or \"console\", got %q", obs.Log.Format))
	}

	if obs.Log.Output == "" {
		v.addError("observability.log.output", "log output is required")
	}

	if obs.Metrics.Enabled && obs.Metrics.Namespace == "" {
		v.addError("observability.metrics.namespace", "namespace is required when metrics are enabled")
	}

	if obs.Tracing.Enabled && obs.Tracing.Endpoint == "" {
		v.addError("observability.tracing.endpoint", "endpoint is required when tracing is enabled")
	}
	if err := util.ValidateRatio(obs.Tracing.SamplingRate); err != nil {
		v.addError("observability.tracing.samplingRate", err.Error())
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
