package benchmarks

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/conveyor-go/conveyor/ratelimit"
)

// =============================================================================
// Limiter Comparison Benchmarks - channel bucket vs golang.org/x/time/rate
// =============================================================================

// BenchmarkLimiter_Uncontended measures single-goroutine acquisition when the
// bucket never runs dry.
func BenchmarkLimiter_Uncontended(b *testing.B) {
	b.Run("Channel", func(b *testing.B) {
		l, err := ratelimit.NewLimiter(1_000_000, time.Second, 1_000_000)
		if err != nil {
			b.Fatal(err)
		}
		defer l.Stop()

		ctx := context.Background()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := l.Acquire(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("XTime", func(b *testing.B) {
		l := rate.NewLimiter(rate.Limit(1_000_000), 1_000_000)

		ctx := context.Background()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := l.Wait(ctx); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkLimiter_TryAcquire measures the non-blocking probe path.
func BenchmarkLimiter_TryAcquire(b *testing.B) {
	b.Run("Channel", func(b *testing.B) {
		l, err := ratelimit.NewLimiter(1_000_000, time.Second, 1_000_000)
		if err != nil {
			b.Fatal(err)
		}
		defer l.Stop()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			l.TryAcquire()
		}
	})

	b.Run("XTime", func(b *testing.B) {
		l := rate.NewLimiter(rate.Limit(1_000_000), 1_000_000)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			l.Allow()
		}
	})
}

// BenchmarkLimiter_Contended measures acquisition with many goroutines
// hammering one bucket.
func BenchmarkLimiter_Contended(b *testing.B) {
	b.Run("Channel", func(b *testing.B) {
		l, err := ratelimit.NewLimiter(10_000_000, time.Second, 1_000_000)
		if err != nil {
			b.Fatal(err)
		}
		defer l.Stop()

		ctx := context.Background()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := l.Acquire(ctx); err != nil {
					b.Error(err)
					return
				}
			}
		})
	})

	b.Run("XTime", func(b *testing.B) {
		l := rate.NewLimiter(rate.Limit(10_000_000), 1_000_000)

		ctx := context.Background()
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := l.Wait(ctx); err != nil {
					b.Error(err)
					return
				}
			}
		})
	})
}

// BenchmarkLimiter_Throttled measures sustained acquisition at a rate low
// enough that callers actually block between refills. The absolute numbers
// are dominated by the configured rate; the interesting metric is how close
// each implementation gets to it.
func BenchmarkLimiter_Throttled(b *testing.B) {
	const perSecond = 10_000

	b.Run("Channel", func(b *testing.B) {
		l, err := ratelimit.NewLimiter(perSecond, time.Second, 1)
		if err != nil {
			b.Fatal(err)
		}
		defer l.Stop()

		ctx := context.Background()
		b.ResetTimer()
		start := time.Now()
		for i := 0; i < b.N; i++ {
			if err := l.Acquire(ctx); err != nil {
				b.Fatal(err)
			}
		}
		elapsed := time.Since(start)
		b.ReportMetric(float64(b.N)/elapsed.Seconds(), "acquires/sec")
	})

	b.Run("XTime", func(b *testing.B) {
		l := rate.NewLimiter(rate.Limit(perSecond), 1)

		ctx := context.Background()
		b.ResetTimer()
		start := time.Now()
		for i := 0; i < b.N; i++ {
			if err := l.Wait(ctx); err != nil {
				b.Fatal(err)
			}
		}
		elapsed := time.Since(start)
		b.ReportMetric(float64(b.N)/elapsed.Seconds(), "acquires/sec")
	})
}

// =============================================================================
// Keyed Limiter Benchmarks
// =============================================================================

func BenchmarkKeyed_Acquire(b *testing.B) {
	keys := []string{"alpha", "beta", "gamma", "delta"}

	k, err := ratelimit.NewKeyed(1_000_000, time.Second, 1_000_000)
	if err != nil {
		b.Fatal(err)
	}
	defer k.Stop()

	ctx := context.Background()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if err := k.Acquire(ctx, keys[i%len(keys)]); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}
