// Package pool provides a rate-limited, cancellable worker pool with
// failure isolation.
//
// A fixed set of workers pulls tasks from a bounded FIFO queue and executes
// each task's handler. Every execution is wrapped with panic recovery: a
// panicking handler produces an error Result tagged with the task identifier
// and the worker keeps serving subsequent tasks. Workers that panic past a
// configured threshold are retired and replaced by fresh workers; task
// identifiers that panic past their own threshold are blacklisted and
// rejected at submission time.
//
// Basic usage:
//
//	p := pool.New[int, int](
//	    pool.WithWorkerCount(4),
//	    pool.WithQueueCapacity(16),
//	)
//
//	err := p.Start(ctx, func(ctx context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = p.Submit(pool.Task[int, int]{ID: "t1", Payload: 21})
//
//	go func() {
//	    _ = p.Shutdown(5 * time.Second)
//	}()
//	for r := range p.Results() {
//	    fmt.Println(r.TaskID, r.Value, r.Err)
//	}
//
// Submission is non-blocking and returns ErrQueueFull under backpressure; use
// Feed to bridge a stream stage into the pool with blocking backpressure
// instead. Task starts can be gated through a token bucket with
// WithRateLimit, and handler errors can be retried with WithRetryPolicy.
//
// Shutdown stops intake, drains queued tasks within the given timeout, and
// closes the Results stream. When the timeout elapses first, in-flight work
// is cancelled and still-queued tasks surface as ErrTaskAbandoned results.
// Every task accepted by Submit is therefore accounted for: it yields exactly
// one Result unless the pool is force-killed with the results buffer already
// full.
package pool
