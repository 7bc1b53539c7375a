// Package pool provides a fixed-size worker pool with a bounded task
// queue, per-assignment timeouts, and automatic crash recovery.
//
// Tasks belong to a closed set of kinds, each served by a registered
// Executor. Submissions block until the result arrives; a full queue
// rejects immediately with QueueFullError. Assignments are tracked in
// a pending-job table keyed by task id, so a result, a timeout, a
// worker crash, and pool shutdown resolve each caller exactly once,
// and late worker responses are dropped with a warning.
//
// A crashed worker is replaced after a fixed delay with the queue
// drained onto the replacement. Worker health is probed periodically
// over dedicated control channels; a worker that cannot answer within
// the probe timeout counts as unhealthy and aggregate health requires
// every worker to answer.
//
// # Usage
//
//	p := pool.New(
//	    pool.WithWorkers(4),
//	    pool.WithQueueCapacity(1000),
//	    pool.WithLogger(logger),
//	)
//	err := p.Register(pool.NewExecutor(pool.TaskDataProcessing, process))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := p.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(context.Background())
//
//	result, err := p.Submit(ctx, pool.TaskDataProcessing, payload)
package pool
