package pool

import (
	"context"
	"errors"
)

// Summary is the outcome of aggregating a results stream. Values holds the
// successful results, Failures the results that carried an error, Abandoned
// counts the failures caused by a timed-out shutdown, and Partial reports
// whether aggregation stopped early because the context was cancelled.
type Summary[R any] struct {
	Values    []R
	Failures  []Result[R]
	Abandoned int
	Partial   bool
}

// Errs returns the errors of all failed results.
func (s Summary[R]) Errs() []error {
	errs := make([]error, 0, len(s.Failures))
	for _, f := range s.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Aggregate consumes a results stream until it closes or ctx is cancelled,
// partitioning successes and failures. Each result is consumed exactly once.
// It never blocks past the stream's close; on cancellation it returns the
// partial summary with Partial set.
func Aggregate[R any](ctx context.Context, results <-chan Result[R]) Summary[R] {
	var s Summary[R]
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return s
			}
			if r.Err != nil {
				s.Failures = append(s.Failures, r)
				if errors.Is(r.Err, ErrTaskAbandoned) {
					s.Abandoned++
				}
				continue
			}
			s.Values = append(s.Values, r.Value)
		case <-ctx.Done():
			s.Partial = true
			return s
		}
	}
}

// AggregateFunc folds successful results into an accumulator while
// collecting errors separately. partial reports early termination by ctx.
func AggregateFunc[R any, A any](
	ctx context.Context,
	results <-chan Result[R],
	initial A,
	combine func(A, Result[R]) A,
) (acc A, errs []error, partial bool) {
	acc = initial
	for {
		select {
		case r, ok := <-results:
			if !ok {
				return acc, errs, false
			}
			if r.Err != nil {
				errs = append(errs, r.Err)
				continue
			}
			acc = combine(acc, r)
		case <-ctx.Done():
			return acc, errs, true
		}
	}
}
