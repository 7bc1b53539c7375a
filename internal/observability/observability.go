// Package observability provides logging, metrics, and tracing for the
// dispatcher.
package observability

import (
	"context"
	"errors"
	"fmt"
)

// Config holds configuration for observability.
type Config struct {
	// Service information
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Logging configuration
	Log LogConfig

	// Metrics configuration
	MetricsEnabled   bool
	MetricsNamespace string

	// Tracing configuration
	Tracing TracerConfig
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:      "velox",
		ServiceVersion:   "dev",
		Environment:      "development",
		Log:              DefaultLogConfig(),
		MetricsEnabled:   true,
		MetricsNamespace: "velox",
		Tracing: TracerConfig{
			ServiceName:  "velox",
			SamplingRate: 1.0,
			Enabled:      false,
		},
	}
}

// Observability bundles the logger, metrics registry, and tracer so the
// daemon can start and stop them together.
type Observability struct {
	config  *Config
	logger  Logger
	metrics *Metrics
	tracer  *Tracer
}

// New creates a new Observability instance.
func New(config *Config) (*Observability, error) {
	if config == nil {
		config = DefaultConfig()
	}

	return &Observability{
		config: config,
	}, nil
}

// Start initializes all observability components.
func (o *Observability) Start(ctx context.Context) error {
	logger, err := NewLogger(o.config.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	o.logger = logger
	SetGlobalLogger(logger)

	o.logger.Info("initializing observability",
		String("service", o.config.ServiceName),
		String("version", o.config.ServiceVersion),
		String("environment", o.config.Environment),
	)

	if o.config.Tracing.Enabled {
		tracer, err := NewTracer(o.config.Tracing)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		o.tracer = tracer
	}

	if o.config.MetricsEnabled {
		o.metrics = NewMetrics(o.config.MetricsNamespace)
		o.metrics.InitVecMetrics()
	}

	o.logger.Info("observability initialized successfully")
	return nil
}

// Stop shuts down all observability components.
func (o *Observability) Stop(ctx context.Context) error {
	if o.logger != nil {
		o.logger.Info("stopping observability")
	}

	var errs []error

	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop tracer: %w", err))
		}
	}

	if o.logger != nil {
		if err := o.logger.Sync(); err != nil {
			// Ignore sync errors for stdout/stderr
			if o.config.Log.Output != "stdout" && o.config.Log.Output != "stderr" {
				errs = append(errs, fmt.Errorf("failed to sync logger: %w", err))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// SetLogLevel changes the logger's minimum level at runtime if the
// logger supports it.
func (o *Observability) SetLogLevel(level string) error {
	if ls, ok := o.logger.(LevelSetter); ok {
		return ls.SetLevel(level)
	}
	return fmt.Errorf("logger does not support runtime level changes")
}

// Logger returns the logger.
func (o *Observability) Logger() Logger {
	return o.logger
}

// Metrics returns the metrics instance, or nil when metrics are disabled.
func (o *Observability) Metrics() *Metrics {
	return o.metrics
}

// Tracer returns the tracer, or nil when tracing is disabled.
func (o *Observability) Tracer() *Tracer {
	return o.tracer
}
