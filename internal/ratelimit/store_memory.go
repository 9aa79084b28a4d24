package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a sliding-window Store local to one process.
type InMemoryStore struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string][]time.Time), now: time.Now}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= window {
		s.sweepLocked(now.Add(-window))
		s.lastSweep = now
	}
	stamps := prune(s.windows[key], now.Add(-window))
	if len(stamps) >= limit {
		s.windows[key] = stamps
		resetAt := now.Add(window)
		if len(stamps) > 0 {
			resetAt = stamps[0].Add(window)
		}
		return Result{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}

	stamps = append(stamps, now)
	s.windows[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

// sweepLocked drops keys with no timestamps after cutoff. Allow runs it at
// most once per window so idle clients do not accumulate.
func (s *InMemoryStore) sweepLocked(cutoff time.Time) {
	for key, stamps := range s.windows {
		if stamps = prune(stamps, cutoff); len(stamps) == 0 {
			delete(s.windows, key)
		} else {
			s.windows[key] = stamps
		}
	}
}

// prune drops timestamps at or before cutoff. Input is in arrival order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
