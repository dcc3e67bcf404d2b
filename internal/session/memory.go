package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sells-group/geotarget/internal/region"
)

type memoryEntry struct {
	whitelist region.Whitelist
	touched   time.Time
}

// MemoryStore is an in-process Store. Sessions idle longer than the TTL are
// dropped on next access or by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source (for tests).
func WithClock(c clockwork.Clock) MemoryOption {
	return func(s *MemoryStore) {
		s.clock = c
	}
}

// NewMemoryStore creates a MemoryStore. A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (region.Whitelist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return region.Clear(), nil
	}
	now := s.clock.Now()
	if s.expired(e, now) {
		delete(s.entries, id)
		return region.Clear(), nil
	}
	e.touched = now
	s.entries[id] = e
	return e.whitelist, nil
}

// Replace implements Store.
func (s *MemoryStore) Replace(_ context.Context, id string, codes []string) (region.Whitelist, error) {
	w, err := region.Replace(codes)
	if err != nil {
		return region.Whitelist{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{whitelist: w, touched: s.clock.Now()}
	return w, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, id string) (region.Whitelist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{whitelist: region.Clear(), touched: s.clock.Now()}
	return region.Clear(), nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var n int
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.touched) > s.ttl
}
