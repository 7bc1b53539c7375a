package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// worker is one pool member. Tasks arrive on the shared queue, control
// traffic arrives on the worker's own channels so a probe or stop is
// always distinguishable from work.
type worker struct {
	id      int
	pool    *Pool
	stopCh  chan struct{}
	probeCh chan chan struct{}
	exited  chan struct{}
}

// run is the worker loop. It exits on a stop signal or after a crash.
func (w *worker) run() {
	defer close(w.exited)

	w.pool.logger.Debug("worker started", observability.Int("worker_id", w.id))

	for {
		select {
		case <-w.stopCh:
			w.pool.logger.Debug("worker stopped", observability.Int("worker_id", w.id))
			return
		case reply := <-w.probeCh:
			close(reply)
		case t := <-w.pool.queue:
			if w.pool.isDraining() {
				w.pool.rejectQueued(t)
				continue
			}
			if crashed := w.execute(t); crashed {
				w.pool.handleWorkerCrash(w.id)
				return
			}
		}
	}
}

// execute runs one task and delivers its result through the pending
// job table. A panic in the executor marks the worker crashed; the
// caller is released with WorkerRestartedError and the worker exits.
func (w *worker) execute(t *task) (crashed bool) {
	p := w.pool

	p.registerPending(t, w.id)

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			crashed = true
			p.logger.Error("worker crashed while executing task",
				observability.Int("worker_id", w.id),
				observability.String("task_id", t.id),
				observability.String("kind", t.kind.String()),
				observability.Any("panic", r),
			)
			p.metrics.workerCrashes.Inc()
			p.completeTask(t.id, taskResult{
				err: util.NewWorkerRestartedError(w.id, t.id, fmt.Sprintf("%v", r)),
			})
		}
	}()

	executor := p.executorFor(t.kind)
	if executor == nil {
		// Registration is checked at submit time, this only happens if
		// executors were mutated concurrently with traffic.
		p.completeTask(t.id, taskResult{
			err: fmt.Errorf("no executor registered for kind %q: %w", t.kind.String(), util.ErrInvalidInput),
		})
		return false
	}

	// Timeouts release the caller without canceling the worker, so the
	// executor context keeps the submitter's values but not its cancel.
	data, err := executor.Execute(context.WithoutCancel(t.ctx), t.payload)

	p.metrics.taskDuration.WithLabelValues(t.kind.String()).Observe(time.Since(start).Seconds())

	if delivered := p.completeTask(t.id, taskResult{data: data, err: err}); !delivered {
		p.logger.Warn("dropping worker response with no pending job",
			observability.Int("worker_id", w.id),
			observability.String("task_id", t.id),
			observability.String("kind", t.kind.String()),
		)
		p.metrics.lateResults.Inc()
	}

	return false
}

// probe checks worker liveness. A worker answers as soon as its loop
// is idle; one stuck in a task past the timeout counts as unhealthy.
func (w *worker) probe(ctx context.Context, timeout time.Duration) bool {
	reply := make(chan struct{})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case w.probeCh <- reply:
	case <-w.exited:
		return false
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-reply:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
