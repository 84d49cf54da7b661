// Package backoff provides retry delay strategies for the worker pool.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// Prevent overflow in the exponential shift.
const maxShift = 63

// Strategy computes the delay before a given retry attempt.
// attempt is 0-indexed: 0 is the delay before the first retry.
type Strategy interface {
	Next(attempt int) time.Duration
}

type exponential struct {
	initial time.Duration
	max     time.Duration
}

// Exponential returns a strategy whose delay doubles with each attempt:
// initial, 2*initial, 4*initial, ... capped at max.
func Exponential(initial, max time.Duration) Strategy {
	return &exponential{initial: initial, max: max}
}

func (e *exponential) Next(attempt int) time.Duration {
	return expDelay(attempt, e.initial, e.max)
}

type jittered struct {
	initial time.Duration
	max     time.Duration
	factor  float64

	mu  sync.Mutex
	rng *rand.Rand
}

// Jittered returns an exponential strategy with +/- factor randomization,
// spreading out retries from tasks that failed simultaneously. factor is
// clamped to [0, 1]; typical values are 0.1 to 0.3.
func Jittered(initial, max time.Duration, factor float64) Strategy {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	return &jittered{
		initial: initial,
		max:     max,
		factor:  factor,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (j *jittered) Next(attempt int) time.Duration {
	base := expDelay(attempt, j.initial, j.max)

	j.mu.Lock()
	mult := 1.0 + (j.rng.Float64()*2-1)*j.factor
	j.mu.Unlock()

	d := time.Duration(float64(base) * mult)
	if d < 0 {
		return 0
	}
	if d > j.max {
		return j.max
	}
	return d
}

func expDelay(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt >= maxShift {
		return max
	}

	d := time.Duration(int64(1)<<uint(attempt)) * initial
	if d > max || d < 0 {
		return max
	}
	return d
}
