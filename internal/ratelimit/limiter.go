// Package ratelimit bounds how often a key (normalized email address) may trigger an action.
package ratelimit

import (
	"context"
	"time"
)

// Limiter reports whether one more event for key fits the configured budget.
// An allowed call consumes budget; a denied call does not have to.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds per-window budgets. A zero or negative limit disables that window.
type Config struct {
	PerMinute int
	PerHour   int
}

type window struct {
	duration time.Duration
	limit    int
}

func (c Config) windows() []window {
	all := []window{
		{time.Minute, c.PerMinute},
		{time.Hour, c.PerHour},
	}
	out := all[:0]
	for _, w := range all {
		if w.limit > 0 {
			out = append(out, w)
		}
	}
	return out
}

// Unlimited allows every call.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
