package cache

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many hits pass between opportunistic purges, so a
// process without the maintenance scheduler still sheds dead buckets.
const sweepEvery = 1024

type bucket struct {
	count int64
	ends  time.Time
}

// MemoryStore is a Store local to one process.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]bucket
	hits    int
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]bucket), now: time.Now}
}

// WithClock swaps the store's clock, for tests.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	window = windowOrDefault(window)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits++
	if s.hits%sweepEvery == 0 {
		s.purgeLocked(now)
	}

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.ends) {
		b = bucket{ends: now.Add(window)}
	}
	b.count++
	s.buckets[key] = b

	return b.count, b.ends.Sub(now), nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.buckets, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) PurgeExpired(context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.purgeLocked(now), nil
}

// Len reports how many buckets are held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) purgeLocked(now time.Time) int64 {
	var removed int64
	for key, b := range s.buckets {
		if !now.Before(b.ends) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}
