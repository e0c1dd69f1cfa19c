package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arenalabs/debatearena/internal/domain"
)

// RateLimiter is a process-local sliding-window rate limiter for
// single-instance deployments.
type RateLimiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

var _ domain.RateLimiter = (*RateLimiter)(nil)

// NewRateLimiter creates an empty in-memory rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// Allow records one hit for key and reports whether it stays within limit
// hits per window.
func (l *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		l.hits[key] = kept
		return false, nil
	}

	l.hits[key] = append(kept, now)
	return true, nil
}
