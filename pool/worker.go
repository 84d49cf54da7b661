package pool

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// superviseSlot keeps one worker slot occupied. When a worker is retired for
// exceeding its panic threshold, a fresh worker with a new ID takes the slot,
// bounded by maxWorkerRestarts to avoid restart storms. The slot returns once
// a worker exits normally (queue drained or context cancelled).
func (p *Pool[T, R]) superviseSlot(ctx context.Context) {
	restarts := 0
	for {
		id := p.workerSeq.Add(1)
		p.registry.add(id)

		retired := p.runWorker(ctx, id)
		if !retired {
			p.registry.remove(id)
			return
		}

		p.registry.retire(id)
		restarts++
		if restarts > p.conf.maxWorkerRestarts {
			return
		}
	}
}

// runWorker pulls tasks until shutdown drains the queue or the context is
// cancelled. It reports true when the worker was retired for panicking past
// the threshold and the slot needs a replacement.
func (p *Pool[T, R]) runWorker(ctx context.Context, workerID int64) (retired bool) {
	for {
		// Cancellation wins over a ready task queue.
		if ctx.Err() != nil {
			return false
		}

		select {
		case <-ctx.Done():
			return false

		case t := <-p.tasks:
			if !p.runTask(ctx, workerID, t) {
				return true
			}

		case <-p.quit:
			// Shutdown began: drain what is already queued, then exit.
			for {
				if ctx.Err() != nil {
					return false
				}
				select {
				case t := <-p.tasks:
					if !p.runTask(ctx, workerID, t) {
						return true
					}
				default:
					return false
				}
			}
		}
	}
}

// runTask executes one task end to end: rate-limiter gate, handler execution
// with panic isolation, bookkeeping, and result emission. It reports false
// when the worker crossed its panic threshold and must be retired.
func (p *Pool[T, R]) runTask(ctx context.Context, workerID int64, t *Task[T, R]) (keep bool) {
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			p.emit(ctx, Result[R]{TaskID: t.ID, WorkerID: workerID, Err: err})
			return true
		}
	}

	started := time.Now()
	value, err, panicked := p.execute(ctx, t)

	res := Result[R]{
		TaskID:     t.ID,
		Value:      value,
		Err:        err,
		WorkerID:   workerID,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}

	keep = true
	if panicked {
		p.blacklist.recordPanic(t.ID)
		if p.registry.recordPanic(workerID) > p.conf.maxPanicsPerWork {
			keep = false
		}
	}

	p.emit(ctx, res)
	if p.onTaskEnd != nil {
		p.onTaskEnd(*t, res)
	}
	return keep
}

// execute resolves the task's handler and runs it with the configured retry
// policy. Panics abort the retry loop immediately; only handler errors are
// retried.
func (p *Pool[T, R]) execute(ctx context.Context, t *Task[T, R]) (result R, err error, panicked bool) {
	fn := t.Handler
	if fn == nil {
		fn = p.defaultFn
	}
	if fn == nil {
		return result, fmt.Errorf("%w: %s", ErrNoHandler, t.ID), false
	}

	maxAttempts := max(p.conf.maxAttempts, 1)
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(p.conf.backoff.Next(attempt - 1)):
			case <-ctx.Done():
				return result, ctx.Err(), false
			}
		}

		result, err, panicked = p.attempt(ctx, fn, t.Payload)
		if err == nil || panicked {
			return result, err, panicked
		}
	}

	return result, err, false
}

// attempt runs the handler once, converting a panic into an ErrTaskPanic
// error so a single task's fault never terminates the worker or the pool.
func (p *Pool[T, R]) attempt(ctx context.Context, fn ProcessFunc[T, R], payload T) (result R, err error, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanic, r, buf[:n])
			panicked = true
		}
	}()

	result, err = fn(ctx, payload)
	return result, err, false
}

// emit delivers a result, racing the context. After cancellation the delivery
// degrades to best effort so a force-killed pool cannot block on a full
// results buffer.
func (p *Pool[T, R]) emit(ctx context.Context, r Result[R]) {
	select {
	case p.results <- r:
	case <-ctx.Done():
		select {
		case p.results <- r:
		default:
		}
	}
}
