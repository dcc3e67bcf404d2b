package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Policy controls exponential backoff between attempts.
type Policy struct {
	// Attempts is the total number of tries, the first included.
	Attempts int
	// Base is the delay before the first retry.
	Base time.Duration
	// Cap bounds any single delay.
	Cap time.Duration
	// Multiplier grows the delay after each retry.
	Multiplier float64
	// Jitter spreads each delay by up to this fraction in either direction.
	Jitter float64

	// Retryable decides which errors are retried. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry runs before each backoff sleep.
	OnRetry func(attempt int, err error)
	// Clock drives the backoff sleep. Defaults to the real clock.
	Clock clockwork.Clock
}

// DefaultPolicy is tuned for interactive platform calls.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Base:       250 * time.Millisecond,
		Cap:        5 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Base <= 0 {
		p.Base = d.Base
	}
	if p.Cap <= 0 {
		p.Cap = d.Cap
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	if p.Clock == nil {
		p.Clock = clockwork.NewRealClock()
	}
	return p
}

// Delay returns the backoff before retry number attempt (0-based), without
// jitter.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.Base) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.Cap) {
		d = float64(p.Cap)
	}
	return time.Duration(d)
}

func (p Policy) jittered(attempt int) time.Duration {
	d := float64(p.Delay(attempt))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(max(d, 0))
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out, or ctx is done. The last error is returned unchanged.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt+1 >= p.Attempts {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}
		select {
		case <-ctx.Done():
			return zero, err
		case <-p.Clock.After(p.jittered(attempt)):
		}
	}
}

// LogRetries returns an OnRetry hook that logs through the global logger.
func LogRetries(transport, op string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("platform: retrying call",
			zap.String("transport", transport),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
