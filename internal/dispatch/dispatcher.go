package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wyrexdev/velox/internal/multipart"
	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Error envelope codes surfaced to clients.
const (
	CodeRouteNotFound   = "ROUTE_NOT_FOUND"
	CodeInvalidBoundary = "INVALID_BOUNDARY"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeQueueFull       = "QUEUE_FULL"
	CodePoolShutdown    = "POOL_SHUTDOWN"
	CodeCircuitOpen     = "CIRCUIT_OPEN"
	CodeTimeout         = "TIMEOUT"
	CodeWorkerRestarted = "WORKER_RESTARTED"
	CodeHandlerError    = "HANDLER_ERROR"
)

// RequestIDHeader carries the request id on every response.
const RequestIDHeader = "X-Request-ID"

// ErrorResponse is the error envelope returned to clients.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Dispatcher orchestrates a request through route resolution, body
// parsing, and the middleware chain, and turns every outcome into a
// response. It is the single recovery point for handler errors and
// panics.
type Dispatcher struct {
	resolver    Resolver
	logger      observability.Logger
	metrics     *dispatchMetrics
	tracer      *observability.Tracer
	development bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(tracer *observability.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithDevelopment toggles development mode. In development, 5xx
// envelopes carry the full error message; in production they carry a
// generic one. 4xx messages always pass through.
func WithDevelopment(development bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.development = development
	}
}

// NewDispatcher creates a Dispatcher resolving routes through the
// given resolver.
func NewDispatcher(resolver Resolver, opts ...DispatcherOption) *Dispatcher {
	tracer, _ := observability.NewTracer(observability.TracerConfig{ServiceName: "velox"})

	d := &Dispatcher{
		resolver: resolver,
		logger:   observability.NopLogger(),
		metrics:  getDispatchMetrics(),
		tracer:   tracer,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch runs one request to completion and always returns a
// response, never an error: every failure is encoded as an error
// envelope with the matching status code.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	start := time.Now()

	d.metrics.activeRequests.Inc()
	defer d.metrics.activeRequests.Dec()

	requestID := util.RequestIDFromContext(ctx)
	if requestID == "" && req.Header != nil {
		requestID = req.Header.Get(RequestIDHeader)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	// Both context key families carry the id so handler lookups and
	// log enrichment agree.
	ctx = util.ContextWithRequestID(ctx, requestID)
	ctx = observability.ContextWithRequestID(ctx, requestID)

	ctx = observability.ExtractTraceContext(ctx, req.Header)
	ctx, span := d.tracer.StartSpan(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()
	ctx = observability.ContextWithSpanIDs(ctx, span)

	logger := d.logger.WithContext(ctx)

	resp := d.dispatch(ctx, req, logger)

	resp.Header.Set(RequestIDHeader, requestID)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	d.metrics.requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	d.metrics.requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	return resp
}

// dispatch is the recoverable inner flow: resolve, parse, execute.
func (d *Dispatcher) dispatch(ctx context.Context, req *Request, logger observability.Logger) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.panicsRecovered.Inc()
			logger.Error("panic recovered during dispatch",
				observability.String("method", req.Method),
				observability.String("path", req.Path),
				observability.Any("panic", r),
				observability.String("stack", string(debug.Stack())),
			)
			err := util.NewHandlerPanicError(req.Method, req.Path, r)
			resp = d.errorResponse(http.StatusInternalServerError, CodeHandlerError,
				d.messageFor(err, http.StatusInternalServerError))
		}
	}()

	match, err := d.resolver.Resolve(req.Method, req.Path)
	if err != nil {
		logger.Debug("route not found",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
		)
		return d.errorResponse(http.StatusNotFound, CodeRouteNotFound, err.Error())
	}

	if contentType := req.ContentType(); isMultipart(contentType) {
		form, err := multipart.ParseRequest(req.RawBody, contentType)
		if err != nil {
			logger.Warn("rejecting request with unusable multipart body",
				observability.String("method", req.Method),
				observability.String("path", req.Path),
				observability.Error(err),
			)
			return d.errorResponse(http.StatusBadRequest, CodeInvalidBoundary, err.Error())
		}
		req.Body = form
	}

	c := newContext(ctx, req, match, logger)

	chain := NewChain(c, match.Middlewares, match.Handler)
	if err := chain.Execute(); err != nil {
		return d.responseForError(req, err, logger)
	}

	if chain.Halted() {
		logger.Debug("middleware halted the chain",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.String("pattern", match.Pattern),
		)
	}

	return c.Response()
}

// responseForError maps a chain error to its envelope.
func (d *Dispatcher) responseForError(req *Request, err error, logger observability.Logger) *Response {
	status, code := classifyError(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.Int("status", status),
			observability.Error(err),
		)
	} else {
		logger.Debug("request rejected",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.Int("status", status),
			observability.Error(err),
		)
	}

	resp := d.errorResponse(status, code, d.messageFor(err, status))

	var rateErr *util.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		seconds := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		resp.Header.Set("Retry-After", strconv.Itoa(seconds))
	}

	return resp
}

// classifyError picks the status code and envelope code for an error.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, CodeRouteNotFound
	case errors.Is(err, util.ErrInvalidBoundary):
		return http.StatusBadRequest, CodeInvalidBoundary
	case errors.Is(err, util.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, util.ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, util.ErrQueueFull):
		return http.StatusServiceUnavailable, CodeQueueFull
	case errors.Is(err, util.ErrPoolShutdown):
		return http.StatusServiceUnavailable, CodePoolShutdown
	case errors.Is(err, util.ErrCircuitOpen):
		return http.StatusServiceUnavailable, CodeCircuitOpen
	case errors.Is(err, util.ErrTimeout):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, util.ErrWorkerRestarted):
		return http.StatusInternalServerError, CodeWorkerRestarted
	default:
		return http.StatusInternalServerError, CodeHandlerError
	}
}

// messageFor gates 5xx detail behind development mode.
func (d *Dispatcher) messageFor(err error, status int) string {
	if status < http.StatusInternalServerError || d.development {
		return err.Error()
	}
	return http.StatusText(status)
}

// errorResponse builds the JSON error envelope.
func (d *Dispatcher) errorResponse(status int, code, message string) *Response {
	d.metrics.errorsTotal.WithLabelValues(code).Inc()

	resp := NewResponse()
	resp.StatusCode = status
	resp.Header.Set("Content-Type", "application/json")

	body, _ := json.Marshal(ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	resp.Body = body

	return resp
}

// isMultipart reports whether a Content-Type declares multipart form
// data.
func isMultipart(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "multipart/form-data")
}
