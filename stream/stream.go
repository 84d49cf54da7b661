// Package stream provides lazy, cancellable, channel-based pipeline stages:
// generators, map/filter/take/reduce combinators, and fan-out/fan-in
// composition.
//
// Every stage owns and closes its own output channel, materializes values
// only as fast as the consumer drains them, and terminates in finite time
// once its input is exhausted or the context is cancelled. Items are
// delivered at most once.
package stream

import "context"

// Generate starts a producer goroutine and returns its output sequence.
// produce calls yield for each value; yield returns false once the context is
// cancelled, at which point the producer should stop. The sequence may be
// infinite. The output channel is unbuffered, so production is pull-driven.
func Generate[T any](ctx context.Context, produce func(ctx context.Context, yield func(T) bool)) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		produce(ctx, func(v T) bool {
			select {
			case out <- v:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return out
}

// FromSlice produces the elements of s as a lazy sequence.
func FromSlice[T any](ctx context.Context, s []T) <-chan T {
	return Generate(ctx, func(ctx context.Context, yield func(T) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	})
}

// Map applies f to each element of in, short-circuiting on cancellation.
func Map[T, U any](ctx context.Context, in <-chan T, f func(T) U) <-chan U {
	out := make(chan U)

	go func() {
		defer close(out)
		for {
			v, ok := recv(ctx, in)
			if !ok {
				return
			}
			if !send(ctx, out, f(v)) {
				return
			}
		}
	}()

	return out
}

// Filter forwards only the elements of in matching pred.
func Filter[T any](ctx context.Context, in <-chan T, pred func(T) bool) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		for {
			v, ok := recv(ctx, in)
			if !ok {
				return
			}
			if !pred(v) {
				continue
			}
			if !send(ctx, out, v) {
				return
			}
		}
	}()

	return out
}

// Take forwards at most n elements of in, then closes its output. With n <= 0
// it returns an already-closed channel without ever reading the source.
func Take[T any](ctx context.Context, in <-chan T, n int) <-chan T {
	out := make(chan T)

	if n <= 0 {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for range n {
			v, ok := recv(ctx, in)
			if !ok {
				return
			}
			if !send(ctx, out, v) {
				return
			}
		}
	}()

	return out
}

// Reduce consumes the entire input and returns the final aggregate. If the
// context is cancelled before the input is exhausted, the partial aggregate
// is returned together with ctx.Err().
func Reduce[T, A any](ctx context.Context, in <-chan T, initial A, combine func(A, T) A) (A, error) {
	acc := initial
	for {
		select {
		case v, ok := <-in:
			if !ok {
				return acc, nil
			}
			acc = combine(acc, v)
		case <-ctx.Done():
			return acc, ctx.Err()
		}
	}
}

// Collect drains in into a slice. On cancellation the elements received so
// far are returned together with ctx.Err().
func Collect[T any](ctx context.Context, in <-chan T) ([]T, error) {
	var initial []T
	return Reduce(ctx, in, initial, func(acc []T, v T) []T {
		return append(acc, v)
	})
}

// Drain discards the remainder of in until it closes. Use it to release an
// upstream producer when a consumer stops early.
func Drain[T any](in <-chan T) {
	for range in {
	}
}

// recv receives one element, racing the context. ok is false on input close
// or cancellation.
func recv[T any](ctx context.Context, in <-chan T) (v T, ok bool) {
	select {
	case v, ok = <-in:
		return v, ok
	case <-ctx.Done():
		return v, false
	}
}

// send delivers one element, racing the context.
func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
