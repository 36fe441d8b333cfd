package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"multidevice-identity/backend/internal/platform/clock"
)

// idleTTL is how long an untouched key keeps its buckets.
const idleTTL = 2 * time.Hour

type buckets struct {
	limiters []*rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per window per key. It is process-local; use
// RedisLimiter when more than one server instance shares the budget.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows []window
	keys    map[string]*buckets
	clock   clock.Clock
}

// NewMemoryLimiter returns a limiter enforcing cfg. A nil clock uses the system clock.
func NewMemoryLimiter(cfg Config, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryLimiter{
		windows: cfg.windows(),
		keys:    make(map[string]*buckets),
		clock:   clk,
	}
}

// Allow reserves one token in every window. If any window would have to wait, all
// reservations are cancelled and the call is denied without consuming budget.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if len(l.windows) == 0 {
		return true, nil
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.bucketsFor(key, now)
	reservations := make([]*rate.Reservation, 0, len(b.limiters))
	for _, lim := range b.limiters {
		r := lim.ReserveN(now, 1)
		reservations = append(reservations, r)
		if !r.OK() || r.DelayFrom(now) > 0 {
			for _, taken := range reservations {
				taken.CancelAt(now)
			}
			return false, nil
		}
	}
	return true, nil
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func (l *MemoryLimiter) bucketsFor(key string, now time.Time) *buckets {
	if b, ok := l.keys[key]; ok {
		b.lastSeen = now
		return b
	}
	b := &buckets{lastSeen: now}
	for _, w := range l.windows {
		every := rate.Every(w.duration / time.Duration(w.limit))
		b.limiters = append(b.limiters, rate.NewLimiter(every, w.limit))
	}
	l.keys[key] = b
	l.cleanup(now)
	return b
}

func (l *MemoryLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-idleTTL)
	for key, b := range l.keys {
		if b.lastSeen.Before(cutoff) {
			delete(l.keys, key)
		}
	}
}
