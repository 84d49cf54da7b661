package pool

import (
	"context"
	"time"
)

// ProcessFunc is the handler signature applied to each task's payload.
// It takes a context for cancellation/timeout control and the payload,
// returning a result of type R or an error.
//
// Type parameters:
//   - T: The payload type
//   - R: The result type
type ProcessFunc[T any, R any] func(ctx context.Context, payload T) (R, error)

// Task is one unit of work submitted to the pool.
//
// Fields:
//   - ID: Unique identifier. Left empty, Submit assigns a generated UUID.
//     Panic bookkeeping and blacklisting are keyed by ID.
//   - Payload: Opaque input handed to the handler.
//   - Handler: Optional per-task handler; nil falls back to the default
//     handler given to Start.
//   - Priority: Carried for callers that order their own submissions; the
//     pool's queue itself is FIFO.
type Task[T any, R any] struct {
	ID       string
	Payload  T
	Handler  ProcessFunc[T, R]
	Priority int
}

// Result is the outcome of executing a single task. Exactly one Result is
// produced per task that reaches a worker; it is immutable after emission.
// Value is meaningful only when Err is nil.
type Result[R any] struct {
	TaskID     string
	Value      R
	Err        error
	WorkerID   int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// WorkerRecord is a snapshot of one worker's bookkeeping entry.
type WorkerRecord struct {
	ID        int64
	Active    bool
	Panics    int
	LastPanic time.Time
}

// Stats is an aggregate snapshot of the pool's bookkeeping.
type Stats struct {
	ActiveWorkers  int
	RetiredWorkers int
	Blacklisted    int
}
