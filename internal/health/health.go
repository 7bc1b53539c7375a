package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wyrexdev/velox/internal/observability"
)

// Status is the reported condition of the service or one check.
type Status string

const (
	// StatusHealthy indicates the check passed.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the service works with reduced
	// capability.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the check failed.
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds a single readiness check.
const DefaultCheckTimeout = 5 * time.Second

// Check is the result of one readiness check.
type Check struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// CheckFunc performs one readiness check. The context carries the
// per-check timeout; implementations doing I/O must honor it.
type CheckFunc func(ctx context.Context) Check

// registeredCheck pairs a check with its criticality. Non-critical
// checks degrade readiness instead of failing it.
type registeredCheck struct {
	fn       CheckFunc
	critical bool
}

// HealthResponse is the liveness report.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the aggregated readiness report.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Checker runs registered readiness checks and reports liveness.
type Checker struct {
	version      string
	startTime    time.Time
	checkTimeout time.Duration
	logger       observability.Logger

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the checker's logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCheckTimeout sets the per-check timeout.
func WithCheckTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.checkTimeout = timeout
		}
	}
}

// NewChecker creates a health checker reporting the given version.
func NewChecker(version string, opts ...Option) *Checker {
	c := &Checker{
		version:      version,
		startTime:    time.Now(),
		checkTimeout: DefaultCheckTimeout,
		logger:       observability.NopLogger(),
		checks:       make(map[string]registeredCheck),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckOption configures a registered check.
type CheckOption func(*registeredCheck)

// Optional marks a check as non-critical. A failing optional check
// degrades readiness instead of failing it.
func Optional() CheckOption {
	return func(r *registeredCheck) {
		r.critical = false
	}
}

// RegisterCheck registers a named readiness check. Registering an
// existing name replaces the previous check.
func (c *Checker) RegisterCheck(name string, fn CheckFunc, opts ...CheckOption) {
	reg := registeredCheck{fn: fn, critical: true}
	for _, opt := range opts {
		opt(&reg)
	}

	c.mu.Lock()
	c.checks[name] = reg
	c.mu.Unlock()
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	delete(c.checks, name)
	c.mu.Unlock()
}

// CheckNames returns the registered check names in sorted order.
func (c *Checker) CheckNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Health reports liveness. The process is alive if it can answer, so
// the status is always healthy.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}
}

// Readiness runs every registered check and aggregates the results.
// A failing critical check makes the service unhealthy; a failing
// optional check or any degraded check makes it degraded.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	c.mu.RLock()
	checks := make(map[string]registeredCheck, len(c.checks))
	for name, reg := range c.checks {
		checks[name] = reg
	}
	c.mu.RUnlock()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(checks)),
		Timestamp: time.Now().UTC(),
	}

	for name, reg := range checks {
		check := c.runCheck(ctx, name, reg)
		response.Checks[name] = check

		switch {
		case check.Status == StatusUnhealthy && reg.critical:
			response.Status = StatusUnhealthy
		case check.Status != StatusHealthy && response.Status != StatusUnhealthy:
			response.Status = StatusDegraded
		}
	}

	getHealthMetrics().readiness(response.Status)
	return response
}

// runCheck executes one check under the per-check timeout and records
// its metrics.
func (c *Checker) runCheck(ctx context.Context, name string, reg registeredCheck) Check {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	check := reg.fn(checkCtx)
	elapsed := time.Since(start)
	check.Duration = elapsed.Round(time.Millisecond).String()

	getHealthMetrics().observe(name, check.Status, elapsed)

	if check.Status != StatusHealthy {
		c.logger.Warn("readiness check not healthy",
			observability.String("check", name),
			observability.String("status", string(check.Status)),
			observability.String("message", check.Message))
	}

	return check
}
