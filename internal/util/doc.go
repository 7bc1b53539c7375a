// Package util provides utility functions and types shared across the
// dispatcher.
//
// This package contains context helpers, the project error taxonomy,
// HTTP request-surface helpers, and validation functions.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - RouteNotFoundError: no route matched a method and path
//   - QueueFullError, TaskTimeoutError, WorkerRestartedError: worker pool failures
//   - InvalidBoundaryError: unusable multipart Content-Type
//   - Common sentinel errors: ErrNotFound, ErrTimeout, ErrQueueFull, etc.
//
// # HTTP Helpers
//
// Tolerant request-surface parsing:
//
//	query := util.ParseQueryString("a=1&a=2&b=x")
//	header := util.CanonicalHeader(rawHeaders)
//
// # Validation
//
// Input validation helpers for ports, durations, methods, and route
// patterns:
//
//	err := util.ValidatePort(8080)
//	err := util.ValidateRoutePattern("/files/:id")
package util
