// Package ratelimit implements a token-bucket rate limiter with cancellable
// acquisition and a keyed multiplexer for per-endpoint limits.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrAcquireCancelled is returned when Acquire is aborted by the caller's
	// context before a token became available. It is a cancellation signal,
	// not a rate-limit violation.
	ErrAcquireCancelled = errors.New("ratelimit: acquire cancelled")

	// ErrLimiterStopped is returned by Acquire after Stop has been called.
	ErrLimiterStopped = errors.New("ratelimit: limiter stopped")

	// ErrInvalidConfig is returned by constructors for non-positive rate or
	// interval, or a capacity below one.
	ErrInvalidConfig = errors.New("ratelimit: invalid configuration")
)

// Limiter is a token bucket. The bucket starts full with `capacity` tokens;
// a background refill goroutine adds one token every per/rate, discarding
// ticks that land on a full bucket. Each Acquire consumes exactly one token.
//
// Tokens are held in a buffered channel, so the count can never exceed the
// capacity or go negative.
type Limiter struct {
	tokens   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	interval time.Duration
}

// NewLimiter creates a token bucket allowing `rate` acquisitions per `per`,
// with bursts of up to `capacity`. rate and per must be positive and capacity
// at least 1, otherwise ErrInvalidConfig is returned.
func NewLimiter(rate int, per time.Duration, capacity int) (*Limiter, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: rate must be positive, got %d", ErrInvalidConfig, rate)
	}
	if per <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, per)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidConfig, capacity)
	}

	// More than one token per nanosecond truncates the refill interval to
	// zero, which time.NewTicker rejects with a panic.
	interval := per / time.Duration(rate)
	if interval <= 0 {
		return nil, fmt.Errorf("%w: refill interval %v / %d is below 1ns", ErrInvalidConfig, per, rate)
	}

	l := &Limiter{
		tokens:   make(chan struct{}, capacity),
		stop:     make(chan struct{}),
		interval: interval,
	}
	for range capacity {
		l.tokens <- struct{}{}
	}

	go l.refill()
	return l, nil
}

// refill adds one token per interval until Stop is called. A tick that finds
// the bucket full is discarded rather than accumulated.
func (l *Limiter) refill() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case l.tokens <- struct{}{}:
			default:
			}
		case <-l.stop:
			return
		}
	}
}

// Acquire consumes one token, blocking until a token is available, the
// context is cancelled, or the limiter is stopped. Cancellation is checked
// both before and while blocking, so a caller already holding a cancelled
// context never steals a token.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrAcquireCancelled, ctx.Err())
	default:
	}

	select {
	case <-l.tokens:
		return nil
	default:
	}

	select {
	case <-l.tokens:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrAcquireCancelled, ctx.Err())
	case <-l.stop:
		return ErrLimiterStopped
	}
}

// TryAcquire consumes a token without blocking. It reports whether one was
// available.
func (l *Limiter) TryAcquire() bool {
	select {
	case <-l.tokens:
		return true
	default:
		return false
	}
}

// Tokens returns the number of tokens currently in the bucket. The value may
// be stale immediately after the call returns.
func (l *Limiter) Tokens() int {
	return len(l.tokens)
}

// Interval returns the duration between refill ticks (per/rate).
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Stop terminates the refill goroutine. Tokens already in the bucket remain
// acquirable; blocked and future Acquire calls fail with ErrLimiterStopped.
// Stop is idempotent.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}
