// Package ratelimit counts attempts per key in fixed windows.
// It guards the login endpoint against password guessing.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left before the window of d resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

type Limiter interface {
	// Allow counts one attempt for key.
	Allow(ctx context.Context, key string) Decision
}

var nowFunc = time.Now

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

type entry struct {
	count   int
	resetAt time.Time
}

type InMemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	items  map[string]entry
}

var _ Limiter = (*InMemoryLimiter)(nil)

// NewInMemory allows limit attempts per key and window.
// Zero values default to 1 attempt per minute.
func NewInMemory(limit int, window time.Duration) *InMemoryLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &InMemoryLimiter{
		limit:  limit,
		window: window,
		items:  make(map[string]entry),
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string) Decision {
	now := nowFunc().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanup(now)
	curr, ok := l.items[key]
	if !ok {
		curr = entry{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr
	return decide(curr.count, l.limit, curr.resetAt)
}

// cleanup drops the expired windows. It must be called with l.mu held.
func (l *InMemoryLimiter) cleanup(now time.Time) {
	for k, v := range l.items {
		if !now.Before(v.resetAt) {
			delete(l.items, k)
		}
	}
}
