package ratelimit

import (
	"sync"
	"time"

	"coffeeshop/internal/clock"
)

// Limiter is a fixed-window counter per key.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clock   clock.Clock
	buckets map[string]bucket
	sweepAt time.Time
}

type bucket struct {
	start time.Time
	count int
}

func New(limit int, window time.Duration, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		clock:   clk,
		buckets: map[string]bucket{},
	}
}

// Allow records a hit for key. When the window is exhausted it returns false
// and the time left until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.pruneLocked(now)

	entry := l.buckets[key]
	if entry.start.IsZero() || now.Sub(entry.start) >= l.window {
		entry = bucket{start: now}
	}
	if entry.count >= l.limit {
		l.buckets[key] = entry
		return false, entry.start.Add(l.window).Sub(now)
	}
	entry.count++
	l.buckets[key] = entry
	return true, 0
}

func (l *Limiter) pruneLocked(now time.Time) {
	if now.Before(l.sweepAt) {
		return
	}
	for key, entry := range l.buckets {
		if now.Sub(entry.start) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.sweepAt = now.Add(l.window)
}
