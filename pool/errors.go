package pool

import "errors"

var (
	// ErrQueueFull is returned by Submit when the bounded task queue is
	// saturated. The caller may retry after backoff.
	ErrQueueFull = errors.New("pool: task queue is full")

	// ErrPoolClosed is returned by Submit and Feed once shutdown has begun.
	ErrPoolClosed = errors.New("pool: pool is closed")

	// ErrPoolNotStarted is returned by operations that require Start.
	ErrPoolNotStarted = errors.New("pool: pool not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("pool: pool already started")

	// ErrTaskBlacklisted is returned by Submit for a task identifier whose
	// panic count reached the configured threshold.
	ErrTaskBlacklisted = errors.New("pool: task is blacklisted")

	// ErrTaskPanic marks a Result whose handler panicked. The panic value
	// and stack are carried in the wrapped message.
	ErrTaskPanic = errors.New("pool: task handler panicked")

	// ErrTaskAbandoned marks a Result for a task that was still queued when
	// a timed-out shutdown forced worker termination.
	ErrTaskAbandoned = errors.New("pool: task abandoned at shutdown")

	// ErrNoHandler marks a Result for a task submitted without a handler to
	// a pool started without a default handler.
	ErrNoHandler = errors.New("pool: no handler for task")

	// ErrShutdownTimeout is returned by Shutdown when queued tasks could not
	// be drained within the timeout.
	ErrShutdownTimeout = errors.New("pool: error in shutting down: timeout reached")
)
