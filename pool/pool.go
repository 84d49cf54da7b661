package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conveyor-go/conveyor/ratelimit"
)

// Pool is a long-running, generic worker pool. Exactly workerCount concurrent
// workers pull tasks from a bounded FIFO queue, optionally gated by a token
// bucket, execute each task's handler with panic isolation, and emit one
// Result per task on the Results channel.
//
// Type parameters:
//   - T: The payload type processed by workers
//   - R: The result type produced by handlers
type Pool[T any, R any] struct {
	conf        *poolConfig
	limiter     *ratelimit.Limiter
	ownsLimiter bool

	mu      sync.RWMutex
	started bool
	closing bool

	defaultFn ProcessFunc[T, R]
	onTaskEnd func(Task[T, R], Result[R])

	tasks   chan *Task[T, R]
	results chan Result[R]
	quit    chan struct{} // closed when Shutdown begins
	done    chan struct{} // closed when all workers have exited
	cancel  context.CancelFunc
	final   sync.Once

	registry  *workerRegistry
	blacklist *blacklist
	workerSeq atomic.Int64
}

// New creates an unstarted pool with the given options. Call Start to launch
// the workers.
//
// Example:
//
//	p := pool.New[int, int](
//	    pool.WithWorkerCount(4),
//	    pool.WithQueueCapacity(16),
//	    pool.WithRateLimit(100, time.Second, 10),
//	)
func New[T any, R any](opts ...Option) *Pool[T, R] {
	cfg := createConfig(opts...)
	return &Pool[T, R]{
		conf:      cfg,
		tasks:     make(chan *Task[T, R], cfg.queueCapacity),
		results:   make(chan Result[R], cfg.resultBuffer),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		registry:  newWorkerRegistry(),
		blacklist: newBlacklist(cfg.maxPanicsPerTask),
	}
}

// OnTaskEnd registers a hook invoked after every task execution with the
// task and its Result. It must be set before Start.
func (p *Pool[T, R]) OnTaskEnd(fn func(Task[T, R], Result[R])) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		p.onTaskEnd = fn
	}
}

// Start launches the worker slots. defaultFn handles tasks that carry no
// handler of their own; it may be nil if every task carries one. Start
// returns an error if the pool already started or the rate limit
// configuration is invalid.
func (p *Pool[T, R]) Start(ctx context.Context, defaultFn ProcessFunc[T, R]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}

	p.limiter = p.conf.limiter
	if p.limiter == nil && p.conf.rlRate != 0 {
		l, err := ratelimit.NewLimiter(p.conf.rlRate, p.conf.rlPer, p.conf.rlCapacity)
		if err != nil {
			return err
		}
		p.limiter = l
		p.ownsLimiter = true
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.defaultFn = defaultFn
	p.started = true

	var g errgroup.Group
	for range p.conf.workerCount {
		g.Go(func() error {
			p.superviseSlot(ctx)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	return nil
}

// Submit enqueues one task without blocking. An empty task ID is replaced
// with a generated UUID before queueing.
//
// Errors: ErrPoolNotStarted before Start, ErrPoolClosed once shutdown began,
// ErrTaskBlacklisted for a banned identifier, and ErrQueueFull when the
// bounded queue is saturated (with queue capacity 0 that means no worker was
// ready for a synchronous handoff).
func (p *Pool[T, R]) Submit(t Task[T, R]) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.closing {
		return ErrPoolClosed
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if p.blacklist.isBanned(t.ID) {
		return fmt.Errorf("%w: %s", ErrTaskBlacklisted, t.ID)
	}

	select {
	case p.tasks <- &t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Feed pulls tasks from a stream stage and submits them with backpressure:
// when the queue is full, Feed blocks instead of failing, so an upstream
// generator is slowed to the pool's pace. It returns nil once the channel is
// exhausted, ctx's error on cancellation, or ErrPoolClosed once shutdown
// begins. A blacklisted identifier is not queued; it surfaces as an
// ErrTaskBlacklisted Result so every fed task still has exactly one outcome.
func (p *Pool[T, R]) Feed(ctx context.Context, in <-chan Task[T, R]) error {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return ErrPoolNotStarted
	}

	for {
		select {
		case t, ok := <-in:
			if !ok {
				return nil
			}
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			if p.blacklist.isBanned(t.ID) {
				r := Result[R]{
					TaskID: t.ID,
					Err:    fmt.Errorf("%w: %s", ErrTaskBlacklisted, t.ID),
				}
				select {
				case p.results <- r:
					continue
				case <-ctx.Done():
					return ctx.Err()
				case <-p.quit:
					return ErrPoolClosed
				}
			}
			select {
			case p.tasks <- &t:
			case <-ctx.Done():
				return ctx.Err()
			case <-p.quit:
				return ErrPoolClosed
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-p.quit:
			return ErrPoolClosed
		}
	}
}

// Results returns the pool's result stream. It closes after Shutdown has
// completed (including the abandoned-task sweep on a timed-out shutdown).
func (p *Pool[T, R]) Results() <-chan Result[R] {
	return p.results
}

// Shutdown stops accepting new submissions, lets queued tasks drain, waits
// for all workers to exit, and then closes the Results stream.
//
// If timeout elapses before the drain completes, in-flight work is cancelled,
// tasks still queued are reported as ErrTaskAbandoned results (best effort),
// and ErrShutdownTimeout is returned. A timeout of zero or less waits
// forever.
func (p *Pool[T, R]) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrPoolNotStarted
	}
	if p.closing {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closing = true
	p.mu.Unlock()

	close(p.quit)

	if err := waitUntil(p.done, timeout); err != nil {
		p.cancel()
		go func() {
			<-p.done
			p.finish()
		}()
		return err
	}

	p.finish()
	return nil
}

// finish sweeps tasks left in the queue into abandoned results, closes the
// results stream, and releases the limiter and context. Runs exactly once,
// only after all workers have exited.
func (p *Pool[T, R]) finish() {
	p.final.Do(func() {
		for {
			select {
			case t := <-p.tasks:
				r := Result[R]{
					TaskID: t.ID,
					Err:    fmt.Errorf("%w: %s", ErrTaskAbandoned, t.ID),
				}
				select {
				case p.results <- r:
				default:
				}
			default:
				close(p.results)
				if p.ownsLimiter {
					p.limiter.Stop()
				}
				p.cancel()
				return
			}
		}
	})
}

// Stats returns a snapshot of worker and blacklist bookkeeping.
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		ActiveWorkers:  p.registry.active(),
		RetiredWorkers: p.registry.retiredCount(),
		Blacklisted:    p.blacklist.size(),
	}
}

// Workers returns a snapshot of all worker records, including retired ones,
// ordered by worker ID.
func (p *Pool[T, R]) Workers() []WorkerRecord {
	return p.registry.snapshot()
}
