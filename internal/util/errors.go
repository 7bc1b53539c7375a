// Package util provides utility functions and types for the dispatcher.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., QueueFullError, TaskTimeoutError). Each
//     type implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTimeout         = errors.New("timeout")
	ErrQueueFull       = errors.New("task queue full")
	ErrWorkerRestarted = errors.New("worker restarted")
	ErrPoolShutdown    = errors.New("worker pool shutting down")
	ErrInvalidBoundary = errors.New("invalid multipart boundary")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrConfigInvalid   = errors.New("invalid configuration")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// Unwrap returns the underlying sentinel so validation failures
// classify as invalid input.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// NewValidationErrorWithFields creates a new ValidationError with field errors.
func NewValidationErrorWithFields(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// RouteNotFoundError represents a route not found error.
type RouteNotFoundError struct {
	Path   string
	Method string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route found for %s %s", e.Method, e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError.
func NewRouteNotFoundError(method, path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path, Method: method}
}

// QueueFullError is returned when a task is submitted to the worker pool
// while its queue is already at capacity. The task is rejected immediately,
// it is never dropped silently.
type QueueFullError struct {
	Kind     string
	Pending  int
	Capacity int
}

// Error implements the error interface.
func (e *QueueFullError) Error() string {
	return fmt.Sprintf("task queue is full (%d pending tasks, capacity %d)", e.Pending, e.Capacity)
}

// Is checks if the error matches the target.
func (e *QueueFullError) Is(target error) bool {
	if target == ErrQueueFull {
		return true
	}
	_, ok := target.(*QueueFullError)
	return ok
}

// NewQueueFullError creates a new QueueFullError.
func NewQueueFullError(kind string, pending, capacity int) *QueueFullError {
	return &QueueFullError{Kind: kind, Pending: pending, Capacity: capacity}
}

// TaskTimeoutError is returned when an assigned task does not complete
// within its timeout. The worker keeps running; only the caller is
// released and any late result is dropped.
type TaskTimeoutError struct {
	TaskID  string
	Kind    string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %s (%s) timed out after %v", e.TaskID, e.Kind, e.Timeout)
}

// Is checks if the error matches the target.
func (e *TaskTimeoutError) Is(target error) bool {
	if target == ErrTimeout {
		return true
	}
	_, ok := target.(*TaskTimeoutError)
	return ok
}

// NewTaskTimeoutError creates a new TaskTimeoutError.
func NewTaskTimeoutError(taskID, kind string, timeout time.Duration) *TaskTimeoutError {
	return &TaskTimeoutError{TaskID: taskID, Kind: kind, Timeout: timeout}
}

// WorkerRestartedError is returned to the caller whose task was in flight
// on a worker that crashed. The pool replaces the worker; the task itself
// is not retried.
type WorkerRestartedError struct {
	WorkerID int
	TaskID   string
	Reason   string
}

// Error implements the error interface.
func (e *WorkerRestartedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("worker %d crashed while processing task %s: %s", e.WorkerID, e.TaskID, e.Reason)
	}
	return fmt.Sprintf("worker %d crashed while processing task %s", e.WorkerID, e.TaskID)
}

// Is checks if the error matches the target.
func (e *WorkerRestartedError) Is(target error) bool {
	if target == ErrWorkerRestarted {
		return true
	}
	_, ok := target.(*WorkerRestartedError)
	return ok
}

// NewWorkerRestartedError creates a new WorkerRestartedError.
func NewWorkerRestartedError(workerID int, taskID, reason string) *WorkerRestartedError {
	return &WorkerRestartedError{WorkerID: workerID, TaskID: taskID, Reason: reason}
}

// InvalidBoundaryError is returned when a multipart Content-Type carries no
// usable boundary parameter. The whole request fails before any part is
// parsed.
type InvalidBoundaryError struct {
	ContentType string
}

// Error implements the error interface.
func (e *InvalidBoundaryError) Error() string {
	return fmt.Sprintf("invalid or missing multipart boundary in %q", e.ContentType)
}

// Is checks if the error matches the target.
func (e *InvalidBoundaryError) Is(target error) bool {
	if target == ErrInvalidBoundary {
		return true
	}
	_, ok := target.(*InvalidBoundaryError)
	return ok
}

// NewInvalidBoundaryError creates a new InvalidBoundaryError.
func NewInvalidBoundaryError(contentType string) *InvalidBoundaryError {
	return &InvalidBoundaryError{ContentType: contentType}
}

// HandlerError wraps an error or recovered panic raised by a route handler
// or middleware. The dispatcher is the only place that converts it to a
// response.
type HandlerError struct {
	Method    string
	Path      string
	Recovered any
	Cause     error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("handler panic for %s %s: %v", e.Method, e.Path, e.Recovered)
	}
	return fmt.Sprintf("handler error for %s %s: %v", e.Method, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *HandlerError) Is(target error) bool {
	_, ok := target.(*HandlerError)
	return ok || errors.Is(e.Cause, target)
}

// NewHandlerError creates a new HandlerError wrapping a handler error.
func NewHandlerError(method, path string, cause error) *HandlerError {
	return &HandlerError{Method: method, Path: path, Cause: cause}
}

// NewHandlerPanicError creates a new HandlerError from a recovered panic.
func NewHandlerPanicError(method, path string, recovered any) *HandlerError {
	return &HandlerError{Method: method, Path: path, Recovered: recovered}
}

// RateLimitError represents a rate limit exceeded error.
type RateLimitError struct {
	Limit      int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %d, retry after: %v)", e.Limit, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *RateLimitError) Is(target error) bool {
	if target == ErrRateLimited {
		return true
	}
	_, ok := target.(*RateLimitError)
	return ok
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(limit int, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Limit: limit, RetryAfter: retryAfter}
}

// CircuitOpenError represents a circuit breaker open error.
type CircuitOpenError struct {
	Name  string
	State string
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %s is %s", e.Name, e.State)
}

// Is checks if the error matches the target.
func (e *CircuitOpenError) Is(target error) bool {
	if target == ErrCircuitOpen {
		return true
	}
	_, ok := target.(*CircuitOpenError)
	return ok
}

// NewCircuitOpenError creates a new CircuitOpenError.
func NewCircuitOpenError(name, state string) *CircuitOpenError {
	return &CircuitOpenError{Name: name, State: state}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsClientError returns true if the error maps to a 4xx response.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotFound) {
		return true
	}

	if errors.Is(err, ErrInvalidInput) {
		return true
	}

	if errors.Is(err, ErrInvalidBoundary) {
		return true
	}

	if errors.Is(err, ErrRateLimited) {
		return true
	}

	return false
}

// IsServerError returns true if the error maps to a 5xx response.
func IsServerError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrQueueFull) {
		return true
	}

	if errors.Is(err, ErrWorkerRestarted) {
		return true
	}

	if errors.Is(err, ErrPoolShutdown) {
		return true
	}

	if errors.Is(err, ErrCircuitOpen) {
		return true
	}

	if errors.Is(err, ErrTimeout) {
		return true
	}

	return false
}
