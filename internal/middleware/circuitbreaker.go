package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyrexdev/velox/internal/dispatch"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// cbTracer is the OTEL tracer used for circuit breaker state events.
var cbTracer = otel.Tracer("velox/circuitbreaker")

// errServerStatus marks a 5xx response inside the breaker so it counts
// as a failure without becoming a chain error.
var errServerStatus = errors.New("server error response")

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	logger observability.Logger
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithBreakerLogger sets the circuit breaker's logger.
func WithBreakerLogger(logger observability.Logger) CircuitBreakerOption {
	return func(b *CircuitBreaker) {
		b.logger = logger
	}
}

// NewCircuitBreaker creates a named circuit breaker. The breaker opens
// when at least threshold requests were seen in the rolling interval
// and at least half of them failed; it probes again after timeout.
func NewCircuitBreaker(name string, threshold int, timeout time.Duration, opts ...CircuitBreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		name:   name,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	thresholdU32 := safeIntToUint32(threshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Info("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)

			getMiddlewareMetrics().breakerTransitions.WithLabelValues(
				name, from.String(), to.String(),
			).Inc()

			// Record a span event so the transition shows up in the
			// traces that triggered it.
			_, span := cbTracer.Start(context.Background(),
				"circuitbreaker.state_change",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("circuitbreaker.name", name),
				attribute.String("circuitbreaker.from", from.String()),
				attribute.String("circuitbreaker.to", to.String()),
			))
			span.End()
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Execute runs fn under the breaker. Exposed for wrapping work outside
// the middleware chain.
func (b *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker's name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Breaker returns a middleware that runs the rest of the chain under
// the circuit breaker. Chain errors and 5xx responses count as
// failures; while the breaker is open the chain is skipped and the
// caller gets a CircuitOpenError, which the dispatcher maps to a 503
// envelope.
func Breaker(b *CircuitBreaker) dispatch.Middleware {
	return func(c *dispatch.Context, next dispatch.Next) error {
		getMiddlewareMetrics().breakerRequests.WithLabelValues(b.name, b.State().String()).Inc()

		_, err := b.cb.Execute(func() (any, error) {
			if err := next(); err != nil {
				return nil, err
			}
			if c.Response().StatusCode >= http.StatusInternalServerError {
				return nil, errServerStatus
			}
			return nil, nil
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			b.logger.Warn("circuit breaker rejected request",
				observability.String("name", b.name),
				observability.String("path", c.Path()),
				observability.String("state", b.State().String()),
			)
			return util.NewCircuitOpenError(b.name, b.State().String())
		case errors.Is(err, errServerStatus):
			// The 5xx response is already written; the breaker only
			// needed to count it.
			return nil
		default:
			return err
		}
	}
}
