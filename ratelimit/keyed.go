package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Keyed multiplexes independent Limiters per key, e.g. one bucket per endpoint
// or per tenant. Every limiter follows the same rate/per/capacity contract.
// Limiters are constructed lazily on first use of a key.
type Keyed struct {
	rate     int
	per      time.Duration
	capacity int

	mu       sync.RWMutex
	limiters map[string]*Limiter
	stopped  bool
}

// NewKeyed creates a keyed limiter factory. The configuration is validated
// once up front so Get can never fail.
func NewKeyed(rate int, per time.Duration, capacity int) (*Keyed, error) {
	// Validate eagerly by constructing and discarding a probe limiter.
	probe, err := NewLimiter(rate, per, capacity)
	if err != nil {
		return nil, err
	}
	probe.Stop()

	return &Keyed{
		rate:     rate,
		per:      per,
		capacity: capacity,
		limiters: make(map[string]*Limiter),
	}, nil
}

// Get returns the limiter for key, constructing it on first use. The read
// path takes only a read lock; construction is double-checked under the write
// lock so concurrent first lookups cannot build duplicate limiters.
func (k *Keyed) Get(key string) *Limiter {
	k.mu.RLock()
	l, ok := k.limiters[key]
	k.mu.RUnlock()
	if ok {
		return l
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.limiters[key]; ok {
		return l
	}

	l, _ = NewLimiter(k.rate, k.per, k.capacity)
	if k.stopped {
		l.Stop()
	}
	k.limiters[key] = l
	return l
}

// Acquire consumes one token from the limiter for key, blocking per the
// Limiter contract.
func (k *Keyed) Acquire(ctx context.Context, key string) error {
	return k.Get(key).Acquire(ctx)
}

// TryAcquire consumes a token for key without blocking.
func (k *Keyed) TryAcquire(key string) bool {
	return k.Get(key).TryAcquire()
}

// Len returns the number of keys with a constructed limiter.
func (k *Keyed) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.limiters)
}

// Stop stops every constructed limiter. Limiters created for new keys after
// Stop are created already stopped.
func (k *Keyed) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	for _, l := range k.limiters {
		l.Stop()
	}
}
