package resilience

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Breaker stops routing calls to a failing transport. After Threshold
// consecutive failures it opens for Cooldown; the first call after that is
// a trial call whose result closes or reopens it.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	clock     clockwork.Clock

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
}

// NewBreaker creates a closed Breaker. A nil clock uses the real clock.
func NewBreaker(threshold int, cooldown time.Duration, clock clockwork.Clock) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, clock: clock}
}

// Allow reports whether a call may go through.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.open || b.clock.Since(b.openedAt) >= b.cooldown
}

// Record feeds the outcome of a call that Allow let through.
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		b.failures = 0
		b.open = false
		return
	}
	b.failures++
	if b.open || b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.clock.Now()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	return !b.Allow()
}
