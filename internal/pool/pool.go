package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wyrexdev/velox/internal/observability"
	"github.com/wyrexdev/velox/internal/util"
)

// Pool defaults.
const (
	DefaultWorkers        = 4
	DefaultQueueCapacity  = 1000
	DefaultTaskTimeout    = 30 * time.Second
	DefaultRestartDelay   = time.Second
	DefaultHealthInterval = 5 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
	DefaultShutdownGrace  = 5 * time.Second
)

// Pool executes tasks on a fixed-size set of workers fed from a
// bounded FIFO queue.
//
// Submissions hand tasks to the first idle worker, or queue them when
// all workers are busy. A full queue rejects the newest submission
// immediately. Each assignment is tracked in a pending-job table keyed
// by task id; completion, timeout, crash, and shutdown race for the
// entry, and whichever claims it first delivers the caller's result.
// Responses without a matching entry are dropped with a warning.
//
// Crashed workers are removed from the roster, their in-flight task
// is rejected with WorkerRestartedError, and a replacement is spawned
// after a fixed delay to avoid crash-loop thrashing.
type Pool struct {
	workerCount    int
	queueCapacity  int
	taskTimeout    time.Duration
	restartDelay   time.Duration
	healthInterval time.Duration
	healthTimeout  time.Duration
	shutdownGrace  time.Duration

	logger  observability.Logger
	metrics *poolMetrics

	queue chan *task

	mu           sync.RWMutex
	executors    map[TaskKind]Executor
	workers      map[int]*worker
	pending      map[string]*pendingJob
	nextWorkerID int
	started      bool
	draining     bool

	stopMonitor chan struct{}
	monitorDone chan struct{}

	healthMu   sync.RWMutex
	lastHealth Health
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the worker count. Values below one are raised to one.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.workerCount = n
		}
	}
}

// WithQueueCapacity sets the pending-queue capacity.
func WithQueueCapacity(n int) Option {
	return func(p *Pool) {
		if n >= 1 {
			p.queueCapacity = n
		}
	}
}

// WithTaskTimeout sets the default per-assignment timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.taskTimeout = d
		}
	}
}

// WithRestartDelay sets the fixed delay before a crashed worker is
// replaced.
func WithRestartDelay(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.restartDelay = d
		}
	}
}

// WithHealthInterval sets the periodic health check interval.
func WithHealthInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.healthInterval = d
		}
	}
}

// WithHealthTimeout sets the per-worker probe timeout.
func WithHealthTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.healthTimeout = d
		}
	}
}

// WithShutdownGrace sets the per-worker grace period on shutdown.
func WithShutdownGrace(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.shutdownGrace = d
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pool with the given options. Executors must be
// registered before Start.
func New(opts ...Option) *Pool {
	p := &Pool{
		workerCount:    DefaultWorkers,
		queueCapacity:  DefaultQueueCapacity,
		taskTimeout:    DefaultTaskTimeout,
		restartDelay:   DefaultRestartDelay,
		healthInterval: DefaultHealthInterval,
		healthTimeout:  DefaultHealthTimeout,
		shutdownGrace:  DefaultShutdownGrace,
		logger:         observability.NopLogger(),
		metrics:        getPoolMetrics(),
		executors:      make(map[TaskKind]Executor),
		workers:        make(map[int]*worker),
		pending:        make(map[string]*pendingJob),
		stopMonitor:    make(chan struct{}),
		monitorDone:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.queue = make(chan *task, p.queueCapacity)

	return p
}

// Register installs an executor for its task kind. Registration is
// only allowed before Start.
func (p *Pool) Register(executor Executor) error {
	kind := executor.Kind()
	if !kind.Valid() {
		return fmt.Errorf("unknown task kind %q: %w", kind.String(), util.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("cannot register executor for %s after the pool has started", kind)
	}
	if _, exists := p.executors[kind]; exists {
		return fmt.Errorf("executor already registered for kind %s", kind)
	}

	p.executors[kind] = executor
	return nil
}

// Start spawns the workers and the health monitor.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("worker pool already started")
	}
	p.started = true
	for i := 0; i < p.workerCount; i++ {
		p.spawnWorkerLocked()
	}
	p.mu.Unlock()

	go p.monitor(ctx)

	p.logger.Info("worker pool started",
		observability.Int("workers", p.workerCount),
		observability.Int("queue_capacity", p.queueCapacity),
		observability.Duration("task_timeout", p.taskTimeout),
	)

	return nil
}

// Submit runs a task with the pool's default timeout and blocks until
// its result is delivered or ctx is canceled.
func (p *Pool) Submit(ctx context.Context, kind TaskKind, payload any) (any, error) {
	return p.SubmitWithTimeout(ctx, kind, payload, p.taskTimeout)
}

// SubmitWithTimeout runs a task with an explicit per-assignment
// timeout.
//
// The task is handed to an idle worker or queued. A full queue fails
// immediately with QueueFullError. Canceling ctx abandons the wait but
// never cancels a running worker; its eventual result is dropped.
func (p *Pool) SubmitWithTimeout(ctx context.Context, kind TaskKind, payload any, timeout time.Duration) (any, error) {
	if !kind.Valid() {
		p.metrics.tasksRejected.WithLabelValues("invalid_kind").Inc()
		return nil, fmt.Errorf("unknown task kind %q: %w", kind.String(), util.ErrInvalidInput)
	}
	if timeout <= 0 {
		timeout = p.taskTimeout
	}

	t := &task{
		id:          uuid.NewString(),
		kind:        kind,
		payload:     payload,
		timeout:     timeout,
		ctx:         ctx,
		resultCh:    make(chan taskResult, 1),
		submittedAt: time.Now(),
	}

	p.mu.RLock()
	if !p.started {
		p.mu.RUnlock()
		return nil, fmt.Errorf("worker pool not started")
	}
	if p.draining {
		p.mu.RUnlock()
		p.metrics.tasksRejected.WithLabelValues("shutdown").Inc()
		return nil, fmt.Errorf("cannot submit %s task: %w", kind, util.ErrPoolShutdown)
	}
	if _, ok := p.executors[kind]; !ok {
		p.mu.RUnlock()
		p.metrics.tasksRejected.WithLabelValues("invalid_kind").Inc()
		return nil, fmt.Errorf("no executor registered for kind %q: %w", kind.String(), util.ErrInvalidInput)
	}

	select {
	case p.queue <- t:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		p.metrics.tasksRejected.WithLabelValues("queue_full").Inc()
		return nil, util.NewQueueFullError(kind.String(), p.queueCapacity, p.queueCapacity)
	}

	p.metrics.tasksSubmitted.WithLabelValues(kind.String()).Inc()
	p.metrics.queueDepth.Set(float64(len(p.queue)))

	select {
	case res := <-t.resultCh:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown drains the pool. Queued and in-flight tasks are rejected
// with a shutdown error, then each worker gets a stop signal and up to
// the grace period to exit before it is abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started || p.draining {
		p.mu.Unlock()
		return nil
	}
	p.draining = true

	workers := make([]*worker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].id < workers[j].id })

	inflight := 0
	for id, job := range p.pending {
		job.timer.Stop()
		job.task.resultCh <- taskResult{
			err: fmt.Errorf("task %s rejected: %w", id, util.ErrPoolShutdown),
		}
		delete(p.pending, id)
		inflight++
	}
	p.mu.Unlock()

	close(p.stopMonitor)

	queued := p.rejectAllQueued()

	p.logger.Info("worker pool draining",
		observability.Int("queued_rejected", queued),
		observability.Int("inflight_rejected", inflight),
		observability.Int("workers", len(workers)),
	)

	for _, w := range workers {
		close(w.stopCh)
	}

	abandoned := 0
	for _, w := range workers {
		timer := time.NewTimer(p.shutdownGrace)
		select {
		case <-w.exited:
			timer.Stop()
		case <-timer.C:
			abandoned++
			p.logger.Warn("worker did not stop within grace period, abandoning",
				observability.Int("worker_id", w.id),
				observability.Duration("grace", p.shutdownGrace),
			)
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	// Anything enqueued while workers were exiting.
	p.rejectAllQueued()

	p.mu.Lock()
	p.workers = make(map[int]*worker)
	p.mu.Unlock()
	p.metrics.workers.Set(0)
	p.metrics.queueDepth.Set(0)

	<-p.monitorDone

	p.logger.Info("worker pool stopped", observability.Int("abandoned", abandoned))
	return nil
}

// HealthCheck probes every rostered worker concurrently, each with
// the configured probe timeout. Aggregate health requires a non-empty
// roster with every worker responding in time.
func (p *Pool) HealthCheck(ctx context.Context) Health {
	p.mu.RLock()
	workers := make([]*worker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.RUnlock()

	statuses := make([]WorkerStatus, len(workers))

	var wg sync.WaitGroup
	for i, w := range workers {
		wg.Add(1)
		go func(i int, w *worker) {
			defer wg.Done()
			statuses[i] = WorkerStatus{
				WorkerID: w.id,
				Healthy:  w.probe(ctx, p.healthTimeout),
			}
		}(i, w)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].WorkerID < statuses[j].WorkerID })

	health := Health{
		Healthy:   len(statuses) > 0,
		Workers:   len(statuses),
		Expected:  p.workerCount,
		Statuses:  statuses,
		CheckedAt: time.Now().UTC(),
	}
	for _, s := range statuses {
		if !s.Healthy {
			health.Healthy = false
			break
		}
	}

	if health.Healthy {
		p.metrics.healthy.Set(1)
	} else {
		p.metrics.healthy.Set(0)
	}

	p.healthMu.Lock()
	p.lastHealth = health
	p.healthMu.Unlock()

	return health
}

// LastHealth returns the most recent health check result without
// probing.
func (p *Pool) LastHealth() Health {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.lastHealth
}

// Stats reports the current pool state.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Workers:       len(p.workers),
		QueueDepth:    len(p.queue),
		QueueCapacity: p.queueCapacity,
		Inflight:      len(p.pending),
		Draining:      p.draining,
	}
}

// Health is the aggregate result of probing all workers.
type Health struct {
	Healthy   bool           `json:"healthy"`
	Workers   int            `json:"workers"`
	Expected  int            `json:"expected"`
	Statuses  []WorkerStatus `json:"statuses"`
	CheckedAt time.Time      `json:"checked_at"`
}

// WorkerStatus is the probe result for a single worker.
type WorkerStatus struct {
	WorkerID int  `json:"worker_id"`
	Healthy  bool `json:"healthy"`
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	Workers       int  `json:"workers"`
	QueueDepth    int  `json:"queue_depth"`
	QueueCapacity int  `json:"queue_capacity"`
	Inflight      int  `json:"inflight"`
	Draining      bool `json:"draining"`
}

// monitor runs periodic health checks until shutdown.
func (p *Pool) monitor(ctx context.Context) {
	defer close(p.monitorDone)

	ticker := time.NewTicker(p.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			health := p.HealthCheck(ctx)
			if !health.Healthy {
				p.logger.Warn("worker pool unhealthy",
					observability.Int("workers", health.Workers),
					observability.Int("expected", health.Expected),
				)
			}
		case <-p.stopMonitor:
			return
		case <-ctx.Done():
			return
		}
	}
}

// spawnWorkerLocked creates and starts a worker. Callers hold p.mu.
func (p *Pool) spawnWorkerLocked() *worker {
	p.nextWorkerID++
	w := &worker{
		id:      p.nextWorkerID,
		pool:    p,
		stopCh:  make(chan struct{}),
		probeCh: make(chan chan struct{}),
		exited:  make(chan struct{}),
	}
	p.workers[w.id] = w
	p.metrics.workers.Set(float64(len(p.workers)))

	go w.run()

	return w
}

// handleWorkerCrash removes a crashed worker from the roster and
// schedules a replacement after the restart delay.
func (p *Pool) handleWorkerCrash(workerID int) {
	p.mu.Lock()
	delete(p.workers, workerID)
	draining := p.draining
	p.metrics.workers.Set(float64(len(p.workers)))
	p.mu.Unlock()

	if draining {
		return
	}

	p.logger.Info("scheduling replacement worker",
		observability.Int("crashed_worker_id", workerID),
		observability.Duration("delay", p.restartDelay),
	)

	time.AfterFunc(p.restartDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.draining {
			return
		}
		w := p.spawnWorkerLocked()
		p.metrics.workerRestarts.Inc()
		p.logger.Info("replacement worker started", observability.Int("worker_id", w.id))
	})
}

// registerPending records a task assignment and arms its timeout.
func (p *Pool) registerPending(t *task, workerID int) {
	job := &pendingJob{task: t, workerID: workerID}

	p.mu.Lock()
	p.pending[t.id] = job
	job.timer = time.AfterFunc(t.timeout, func() {
		p.expireTask(t.id)
	})
	p.mu.Unlock()

	p.metrics.queueDepth.Set(float64(len(p.queue)))
}

// completeTask resolves a pending job with the worker's result. It
// reports false when no pending entry exists, meaning the job already
// timed out, was rejected, or belonged to a replaced worker.
func (p *Pool) completeTask(id string, res taskResult) bool {
	p.mu.Lock()
	job, ok := p.pending[id]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.pending, id)
	p.mu.Unlock()

	job.timer.Stop()
	job.task.resultCh <- res

	status := "ok"
	if res.err != nil {
		status = "error"
	}
	p.metrics.tasksCompleted.WithLabelValues(job.task.kind.String(), status).Inc()

	return true
}

// expireTask resolves a pending job with TimeoutError. The assigned
// worker keeps running; its eventual response finds no entry and is
// dropped.
func (p *Pool) expireTask(id string) {
	p.mu.Lock()
	job, ok := p.pending[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, id)
	p.mu.Unlock()

	t := job.task
	t.resultCh <- taskResult{
		err: util.NewTaskTimeoutError(t.id, t.kind.String(), t.timeout),
	}
	p.metrics.tasksCompleted.WithLabelValues(t.kind.String(), "timeout").Inc()

	p.logger.Warn("task timed out, releasing caller",
		observability.String("task_id", t.id),
		observability.String("kind", t.kind.String()),
		observability.Int("worker_id", job.workerID),
		observability.Duration("timeout", t.timeout),
	)
}

// rejectQueued fails one dequeued task during drain.
func (p *Pool) rejectQueued(t *task) {
	t.resultCh <- taskResult{
		err: fmt.Errorf("task %s rejected: %w", t.id, util.ErrPoolShutdown),
	}
	p.metrics.tasksRejected.WithLabelValues("shutdown").Inc()
}

// rejectAllQueued empties the queue, failing every waiting task.
func (p *Pool) rejectAllQueued() int {
	rejected := 0
	for {
		select {
		case t := <-p.queue:
			p.rejectQueued(t)
			rejected++
		default:
			p.metrics.queueDepth.Set(float64(len(p.queue)))
			return rejected
		}
	}
}

// executorFor returns the executor registered for a kind, nil if none.
func (p *Pool) executorFor(kind TaskKind) Executor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.executors[kind]
}

// isDraining reports whether shutdown has begun.
func (p *Pool) isDraining() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.draining
}
