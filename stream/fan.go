package stream

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FanOut runs n replicas of stage concurrently over a shared input and
// returns one output sequence per replica. Each input element is pulled by
// exactly one replica, so an item is processed and delivered exactly once
// across all outputs. Each replica owns and closes its own output.
func FanOut[T, U any](ctx context.Context, in <-chan T, n int, stage func(ctx context.Context, v T) U) []<-chan U {
	if n < 1 {
		n = 1
	}

	outs := make([]<-chan U, n)
	for i := range n {
		out := make(chan U)
		outs[i] = out

		go func() {
			defer close(out)
			for {
				v, ok := recv(ctx, in)
				if !ok {
					return
				}
				if !send(ctx, out, stage(ctx, v)) {
					return
				}
			}
		}()
	}

	return outs
}

// FanIn merges several sequences into one. There is no ordering guarantee
// across inputs: whichever input is ready first wins, ties resolved
// arbitrarily by the runtime's select. Every item taken from an input is
// delivered exactly once. The merged output closes once all inputs are
// exhausted or the context is cancelled.
func FanIn[T any](ctx context.Context, ins ...<-chan T) <-chan T {
	out := make(chan T)

	var wg sync.WaitGroup
	for _, in := range ins {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := recv(ctx, in)
				if !ok {
					return
				}
				if !send(ctx, out, v) {
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Pipeline fans in the outputs of n concurrent stage replicas over one input:
// a FanOut immediately merged by a FanIn. Replica scheduling is supervised so
// the merged output closes only after every replica has finished.
func Pipeline[T, U any](ctx context.Context, in <-chan T, n int, stage func(ctx context.Context, v T) U) <-chan U {
	if n < 1 {
		n = 1
	}

	out := make(chan U)

	var g errgroup.Group
	for range n {
		g.Go(func() error {
			for {
				v, ok := recv(ctx, in)
				if !ok {
					return nil
				}
				if !send(ctx, out, stage(ctx, v)) {
					return ctx.Err()
				}
			}
		})
	}

	go func() {
		_ = g.Wait()
		close(out)
	}()

	return out
}
