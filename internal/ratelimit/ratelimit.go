// Package ratelimit implements a per-identity sliding-window counter with
// an injected clock and TTL-based eviction.
package ratelimit

import (
	"sync"
	"time"
)

// Clock provides the current time; injected for tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type window struct {
	bucket int64 // minute bucket the count belongs to
	count  int
}

// Limiter counts requests per identity per minute bucket. Entries for
// identities that go quiet are evicted after the TTL instead of being
// cleared ad hoc.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	ttl       time.Duration
	clock     Clock
	windows   map[string]window
	lastSweep time.Time
	lastSeen  map[string]time.Time
}

// NewLimiter creates a limiter allowing limit requests per identity per
// minute. A limit <= 0 disables limiting.
func NewLimiter(limit int) *Limiter {
	return NewLimiterWithClock(limit, 10*time.Minute, systemClock{})
}

// NewLimiterWithClock injects the eviction TTL and clock for tests.
func NewLimiterWithClock(limit int, ttl time.Duration, clock Clock) *Limiter {
	return &Limiter{
		limit:    limit,
		ttl:      ttl,
		clock:    clock,
		windows:  make(map[string]window),
		lastSeen: make(map[string]time.Time),
	}
}

// Allow records a request for the identity and reports whether it is
// within the per-minute limit.
func (l *Limiter) Allow(identity string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.sweep(now)

	bucket := now.Unix() / 60
	w := l.windows[identity]
	if w.bucket != bucket {
		w = window{bucket: bucket}
	}
	w.count++
	l.windows[identity] = w
	l.lastSeen[identity] = now

	return w.count <= l.limit
}

// sweep drops identities idle past the TTL. Runs at most once per TTL.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl {
		return
	}
	l.lastSweep = now
	for identity, seen := range l.lastSeen {
		if now.Sub(seen) >= l.ttl {
			delete(l.lastSeen, identity)
			delete(l.windows, identity)
		}
	}
}
