package guard

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is a process-local sliding-window guard for development and
// tests. Production deployments with multiple instances should use the
// Redis-backed guard instead.
type MemoryGuard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	attempts []time.Time
	lastSeen time.Time
}

// NewMemoryGuard creates an in-memory guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{buckets: make(map[string]*bucket)}
}

// Allow consumes one attempt from the key's sliding window budget.
func (g *MemoryGuard) Allow(_ context.Context, key string, points int, window time.Duration) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{}
		g.buckets[key] = b
	}

	cutoff := now.Add(-window)
	kept := b.attempts[:0]
	for _, t := range b.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.attempts = kept
	b.lastSeen = now

	if len(b.attempts) >= points {
		retry := b.attempts[0].Add(window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return &Result{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
	}

	b.attempts = append(b.attempts, now)
	g.sweep(now)
	return &Result{Allowed: true, Remaining: points - len(b.attempts)}, nil
}

// sweep drops buckets idle for a while; called with the lock held.
func (g *MemoryGuard) sweep(now time.Time) {
	if len(g.buckets) < 1024 {
		return
	}
	stale := now.Add(-15 * time.Minute)
	for key, b := range g.buckets {
		if b.lastSeen.Before(stale) {
			delete(g.buckets, key)
		}
	}
}
