package pool

import (
	"runtime"
	"time"

	"github.com/conveyor-go/conveyor/internal/backoff"
	"github.com/conveyor-go/conveyor/ratelimit"
)

// Option is a functional option for configuring the worker pool.
type Option func(*poolConfig)

type poolConfig struct {
	workerCount       int
	queueCapacity     int // -1 = unset, resolved to workerCount
	resultBuffer      int // -1 = unset, resolved to workerCount + queueCapacity
	maxPanicsPerWork  int
	maxPanicsPerTask  int
	maxWorkerRestarts int

	maxAttempts  int
	initialDelay time.Duration
	backoff      backoff.Strategy

	limiter    *ratelimit.Limiter
	rlRate     int
	rlPer      time.Duration
	rlCapacity int
}

func defaultConfig() *poolConfig {
	return &poolConfig{
		workerCount:       runtime.GOMAXPROCS(0),
		queueCapacity:     -1,
		resultBuffer:      -1,
		maxPanicsPerWork:  3,
		maxPanicsPerTask:  3,
		maxWorkerRestarts: 8,
		maxAttempts:       1,
	}
}

func createConfig(opts ...Option) *poolConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.queueCapacity < 0 {
		cfg.queueCapacity = cfg.workerCount
	}
	if cfg.resultBuffer < 0 {
		cfg.resultBuffer = cfg.workerCount + cfg.queueCapacity
	}
	if cfg.maxAttempts > 1 && cfg.backoff == nil {
		initial := cfg.initialDelay
		if initial <= 0 {
			initial = 100 * time.Millisecond
		}
		cfg.backoff = backoff.Exponential(initial, 5*time.Second)
	}

	return cfg
}

// WithWorkerCount sets the number of concurrent workers.
// If not specified, defaults to runtime.GOMAXPROCS(0).
func WithWorkerCount(count int) Option {
	return func(cfg *poolConfig) {
		if count > 0 {
			cfg.workerCount = count
		}
	}
}

// WithQueueCapacity bounds the task queue. Zero means no buffering: Submit
// succeeds only when a worker is ready to take the task synchronously.
// If not specified, defaults to the number of workers.
func WithQueueCapacity(size int) Option {
	return func(cfg *poolConfig) {
		if size >= 0 {
			cfg.queueCapacity = size
		}
	}
}

// WithResultBuffer sets the buffer size of the results channel.
// If not specified, defaults to workerCount + queueCapacity.
func WithResultBuffer(size int) Option {
	return func(cfg *poolConfig) {
		if size >= 0 {
			cfg.resultBuffer = size
		}
	}
}

// WithRateLimit gates task starts through a token bucket allowing `rate`
// starts per `per` with bursts up to `capacity`. The pool owns the bucket and
// stops it at shutdown. Invalid values surface as an error from Start.
func WithRateLimit(rate int, per time.Duration, capacity int) Option {
	return func(cfg *poolConfig) {
		cfg.rlRate = rate
		cfg.rlPer = per
		cfg.rlCapacity = capacity
	}
}

// WithLimiter gates task starts through a caller-owned limiter, for example
// one shared across several pools. The pool does not stop it at shutdown.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(cfg *poolConfig) {
		cfg.limiter = l
	}
}

// WithMaxPanicsPerWorker sets how many isolated panics one worker absorbs
// before it is retired and replaced by a fresh worker. Default: 3.
func WithMaxPanicsPerWorker(n int) Option {
	return func(cfg *poolConfig) {
		if n > 0 {
			cfg.maxPanicsPerWork = n
		}
	}
}

// WithMaxPanicsPerTask sets how many panics a single task identifier may
// cause before subsequent submissions of that identifier are rejected with
// ErrTaskBlacklisted. Default: 3.
func WithMaxPanicsPerTask(n int) Option {
	return func(cfg *poolConfig) {
		if n > 0 {
			cfg.maxPanicsPerTask = n
		}
	}
}

// WithMaxWorkerRestarts bounds how many replacement workers one worker slot
// may consume over the pool's lifetime, preventing restart storms. Default: 8.
func WithMaxWorkerRestarts(n int) Option {
	return func(cfg *poolConfig) {
		if n >= 0 {
			cfg.maxWorkerRestarts = n
		}
	}
}

// WithRetryPolicy re-runs a task's handler up to maxAttempts times on
// handler errors (never on panics), waiting an exponentially growing delay
// starting at initialDelay between attempts.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *poolConfig) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithJitteredBackoff replaces the default exponential retry delay with a
// jittered exponential one, spreading out retries of tasks that failed at the
// same instant. factor is the randomization share, typically 0.1 to 0.3.
func WithJitteredBackoff(initial, max time.Duration, factor float64) Option {
	return func(cfg *poolConfig) {
		cfg.backoff = backoff.Jittered(initial, max, factor)
	}
}
