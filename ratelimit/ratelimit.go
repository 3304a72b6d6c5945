// Package ratelimit provides a per-owner token-bucket admission limiter
// for StartJob, guarding the daemon against a single caller flooding it
// with job submissions.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per owner identity.
type Limiter struct {
	rateLimit rate.Limit
	burst     int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// New creates a Limiter that allows ratePerSecond job starts per second
// per owner, with burst allowed to accumulate up to burst tokens.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{
		rateLimit: rate.Limit(ratePerSecond),
		burst:     burst,
		buckets:   make(map[string]*rate.Limiter),
	}
}

// Allow reports whether owner may start another job right now, consuming
// a token from their bucket if so.
func (l *Limiter) Allow(owner string) bool {
	return l.bucketFor(owner).Allow()
}

func (l *Limiter) bucketFor(owner string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[owner]
	if !ok {
		b = rate.NewLimiter(l.rateLimit, l.burst)
		l.buckets[owner] = b
	}
	return b
}
