package pool

import (
	"errors"
	"testing"
	"time"
)

// submitWait retries a submission while the bounded queue is saturated.
// Used by tests that intentionally submit more tasks than the queue holds.
func submitWait[T, R any](t *testing.T, p *Pool[T, R], task Task[T, R]) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := p.Submit(task)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrQueueFull) {
			t.Fatalf("submit %s: %v", task.ID, err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("submit %s: queue stayed full", task.ID)
		}
		time.Sleep(time.Millisecond)
	}
}

// collectResults drains the results channel into a slice until it closes or
// the timeout elapses.
func collectResults[R any](t *testing.T, results <-chan Result[R], timeout time.Duration) []Result[R] {
	t.Helper()

	var out []Result[R]
	expire := time.After(timeout)
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return out
			}
			out = append(out, r)
		case <-expire:
			t.Fatalf("results channel did not close within %v (got %d results)", timeout, len(out))
		}
	}
}
