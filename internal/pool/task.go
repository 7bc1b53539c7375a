package pool

import (
	"context"
	"time"
)

// TaskKind identifies one of the closed set of task types the pool
// executes. Control traffic (health probes, stop signals) is carried
// on dedicated channels and never appears as a TaskKind.
type TaskKind string

// The supported task kinds.
const (
	TaskFileValidation TaskKind = "file-validation"
	TaskFileProcessing TaskKind = "file-processing"
	TaskImageResize    TaskKind = "image-resize"
	TaskDataProcessing TaskKind = "data-processing"
)

// Valid reports whether k is one of the supported task kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskFileValidation, TaskFileProcessing, TaskImageResize, TaskDataProcessing:
		return true
	}
	return false
}

// String returns the kind as a plain string.
func (k TaskKind) String() string {
	return string(k)
}

// Executor runs tasks of a single kind on pool workers. Execute is
// called from worker goroutines and must be safe for concurrent use.
// The context carries request-scoped values but is never canceled
// mid-flight, a task timeout only releases the waiting caller.
type Executor interface {
	Kind() TaskKind
	Execute(ctx context.Context, payload any) (any, error)
}

// executorFunc adapts a plain function to the Executor interface.
type executorFunc struct {
	kind TaskKind
	fn   func(ctx context.Context, payload any) (any, error)
}

// NewExecutor wraps fn as an Executor for the given kind.
func NewExecutor(kind TaskKind, fn func(ctx context.Context, payload any) (any, error)) Executor {
	return &executorFunc{kind: kind, fn: fn}
}

func (e *executorFunc) Kind() TaskKind {
	return e.kind
}

func (e *executorFunc) Execute(ctx context.Context, payload any) (any, error) {
	return e.fn(ctx, payload)
}

// task is one submitted unit of work. The result channel is buffered
// so completion never blocks on an abandoned caller.
type task struct {
	id          string
	kind        TaskKind
	payload     any
	timeout     time.Duration
	ctx         context.Context
	resultCh    chan taskResult
	submittedAt time.Time
}

// taskResult is delivered to the submitting caller exactly once.
type taskResult struct {
	data any
	err  error
}

// pendingJob tracks a task assigned to a worker. The entry is removed
// on completion, timeout, worker crash, or pool shutdown; whichever
// happens first owns the result delivery.
type pendingJob struct {
	task     *task
	workerID int
	timer    *time.Timer
}
