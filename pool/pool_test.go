package pool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func double(_ context.Context, n int) (int, error) {
	return n * 2, nil
}

func TestPool_DoublesFiveTasks(t *testing.T) {
	// Two workers, queue capacity two, handler f(x) = x*2: five tasks must
	// produce the five doubled values in any order, no errors.
	p := New[int, int](
		WithWorkerCount(2),
		WithQueueCapacity(2),
		WithResultBuffer(8),
	)
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 1; i <= 5; i++ {
		submitWait(t, p, Task[int, int]{ID: fmt.Sprintf("t%d", i), Payload: i})
	}

	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	results := collectResults(t, p.Results(), 5*time.Second)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}

	want := map[int]bool{2: true, 4: true, 6: true, 8: true, 10: true}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("task %s: unexpected error %v", r.TaskID, r.Err)
		}
		if !want[r.Value] {
			t.Errorf("unexpected value %d", r.Value)
		}
		delete(want, r.Value)
	}
	if len(want) != 0 {
		t.Errorf("missing values: %v", want)
	}
}

func TestPool_ExactlyOneResultPerTask(t *testing.T) {
	const numTasks = 200

	p := New[int, int](
		WithWorkerCount(8),
		WithQueueCapacity(16),
		WithResultBuffer(numTasks),
	)
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := range numTasks {
		submitWait(t, p, Task[int, int]{ID: fmt.Sprintf("task-%d", i), Payload: i})
	}

	if err := p.Shutdown(10 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	results := collectResults(t, p.Results(), 10*time.Second)
	if len(results) != numTasks {
		t.Fatalf("expected %d results, got %d", numTasks, len(results))
	}

	seen := make(map[string]int, numTasks)
	for _, r := range results {
		seen[r.TaskID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("task %s produced %d results", id, n)
		}
	}
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p := New[int, int]()
	if err := p.Submit(Task[int, int]{Payload: 1}); !errors.Is(err, ErrPoolNotStarted) {
		t.Fatalf("expected ErrPoolNotStarted, got %v", err)
	}
}

func TestPool_SubmitAssignsID(t *testing.T) {
	p := New[int, int](WithWorkerCount(1))
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := p.Submit(Task[int, int]{Payload: 3}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	results := collectResults(t, p.Results(), time.Second)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].TaskID == "" {
		t.Error("expected generated task ID, got empty")
	}
}

func TestPool_QueueFullBackpressure(t *testing.T) {
	block := make(chan struct{})
	p := New[int, int](
		WithWorkerCount(1),
		WithQueueCapacity(1),
	)
	err := p.Start(context.Background(), func(ctx context.Context, n int) (int, error) {
		<-block
		return n, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		close(block)
		_ = p.Shutdown(5 * time.Second)
		collectResults(t, p.Results(), 5*time.Second)
	}()

	// First task is picked up by the worker, second occupies the queue.
	if err := p.Submit(Task[int, int]{ID: "a", Payload: 1}); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := p.Submit(Task[int, int]{ID: "b", Payload: 2}); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	if err := p.Submit(Task[int, int]{ID: "c", Payload: 3}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPool_UnbufferedQueueNeedsReadyWorker(t *testing.T) {
	block := make(chan struct{})
	p := New[int, int](
		WithWorkerCount(1),
		WithQueueCapacity(0),
	)
	err := p.Start(context.Background(), func(ctx context.Context, n int) (int, error) {
		<-block
		return n, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		close(block)
		_ = p.Shutdown(5 * time.Second)
		collectResults(t, p.Results(), 5*time.Second)
	}()

	// Idle worker: synchronous handoff succeeds.
	submitWait(t, p, Task[int, int]{ID: "a", Payload: 1})
	time.Sleep(50 * time.Millisecond)

	// Worker busy, no buffer: submission must fail fast.
	if err := p.Submit(Task[int, int]{ID: "b", Payload: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestPool_PerTaskHandlerOverridesDefault(t *testing.T) {
	p := New[int, int](WithWorkerCount(1))
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	triple := func(_ context.Context, n int) (int, error) { return n * 3, nil }
	if err := p.Submit(Task[int, int]{ID: "custom", Payload: 5, Handler: triple}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := p.Submit(Task[int, int]{ID: "default", Payload: 5}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	byID := make(map[string]int)
	for _, r := range collectResults(t, p.Results(), time.Second) {
		byID[r.TaskID] = r.Value
	}
	if byID["custom"] != 15 {
		t.Errorf("expected per-task handler result 15, got %d", byID["custom"])
	}
	if byID["default"] != 10 {
		t.Errorf("expected default handler result 10, got %d", byID["default"])
	}
}

func TestPool_FeedBridgesChannelWithBackpressure(t *testing.T) {
	const numTasks = 50

	p := New[int, int](
		WithWorkerCount(2),
		WithQueueCapacity(2),
		WithResultBuffer(numTasks),
	)
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	in := make(chan Task[int, int])
	go func() {
		defer close(in)
		for i := range numTasks {
			in <- Task[int, int]{ID: fmt.Sprintf("f%d", i), Payload: i}
		}
	}()

	if err := p.Feed(context.Background(), in); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	results := collectResults(t, p.Results(), 5*time.Second)
	if len(results) != numTasks {
		t.Fatalf("expected %d results, got %d", numTasks, len(results))
	}
}

func TestPool_FeedStopsOnCancel(t *testing.T) {
	p := New[int, int](WithWorkerCount(1))
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		_ = p.Shutdown(time.Second)
		collectResults(t, p.Results(), time.Second)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Task[int, int]) // never closed

	fed := make(chan error, 1)
	go func() {
		fed <- p.Feed(ctx, in)
	}()

	cancel()
	select {
	case err := <-fed:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Feed did not return after cancellation")
	}
}

func TestPool_OnTaskEndHook(t *testing.T) {
	var hookCalls atomic.Int32

	p := New[int, int](WithWorkerCount(2))
	p.OnTaskEnd(func(task Task[int, int], r Result[int]) {
		hookCalls.Add(1)
	})

	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := range 5 {
		submitWait(t, p, Task[int, int]{ID: fmt.Sprintf("h%d", i), Payload: i})
	}
	if err := p.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	collectResults(t, p.Results(), time.Second)

	if hookCalls.Load() != 5 {
		t.Errorf("expected hook to run 5 times, got %d", hookCalls.Load())
	}
}

func TestPool_FeedReportsBlacklistedTask(t *testing.T) {
	p := New[int, int](
		WithWorkerCount(1),
		WithQueueCapacity(4),
		WithResultBuffer(8),
		WithMaxPanicsPerTask(1),
	)
	if err := p.Start(context.Background(), double); err != nil {
		t.Fatalf("start: %v", err)
	}

	// One panic bans the identifier.
	submitWait(t, p, Task[int, int]{ID: "cursed", Payload: 1, Handler: panicky})

	deadline := time.Now().Add(5 * time.Second)
	for p.Stats().Blacklisted == 0 {
		if time.Now().After(deadline) {
			t.Fatal("task was never blacklisted")
		}
		time.Sleep(time.Millisecond)
	}

	// A fed banned identifier must still produce an outcome, not vanish.
	in := make(chan Task[int, int], 2)
	in <- Task[int, int]{ID: "cursed", Payload: 2}
	in <- Task[int, int]{ID: "clean", Payload: 3}
	close(in)

	if err := p.Feed(context.Background(), in); err != nil {
		t.Fatalf("feed: %v", err)
	}
	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	results := collectResults(t, p.Results(), 5*time.Second)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var panics, banned int
	var clean *Result[int]
	for i, r := range results {
		switch {
		case errors.Is(r.Err, ErrTaskPanic):
			panics++
		case errors.Is(r.Err, ErrTaskBlacklisted):
			banned++
		case r.TaskID == "clean":
			clean = &results[i]
		}
	}
	if panics != 1 || banned != 1 {
		t.Errorf("expected 1 panic and 1 blacklisted result, got %d and %d", panics, banned)
	}
	if clean == nil || clean.Err != nil || clean.Value != 6 {
		t.Errorf("expected clean task to succeed with 6, got %+v", clean)
	}
}
