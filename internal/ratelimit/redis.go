package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"multidevice-identity/backend/internal/platform/clock"
	"multidevice-identity/backend/internal/platform/ids"
)

// RedisLimiter is a sliding-window limiter backed by one sorted set per key and window.
// Every attempt is recorded, so a caller that keeps retrying stays blocked.
type RedisLimiter struct {
	client  redis.Cmdable
	windows []window
	prefix  string
	clock   clock.Clock
}

// NewRedisLimiter returns a limiter enforcing cfg. A nil clock uses the system clock.
func NewRedisLimiter(client redis.Cmdable, cfg Config, clk clock.Clock) *RedisLimiter {
	if clk == nil {
		clk = clock.System{}
	}
	return &RedisLimiter{
		client:  client,
		windows: cfg.windows(),
		prefix:  "ratelimit:otp",
		clock:   clk,
	}
}

// Allow checks every window in turn and stops at the first one that is full.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.clock.Now()
	for _, w := range l.windows {
		allowed, err := l.checkWindow(ctx, key, w, now)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (l *RedisLimiter) checkWindow(ctx context.Context, key string, w window, now time.Time) (bool, error) {
	redisKey := l.key(key, w.duration)
	windowStart := now.Add(-w.duration).UnixNano()
	nowNano := now.UnixNano()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowNano), Member: fmt.Sprintf("%d-%s", nowNano, ids.New())})
	pipe.Expire(ctx, redisKey, w.duration+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: redis pipeline: %w", err)
	}
	return zcard.Val() < int64(w.limit), nil
}

// Remaining returns how many events the window still accepts for key.
func (l *RedisLimiter) Remaining(ctx context.Context, key string, d time.Duration) (int64, error) {
	var limit int
	for _, w := range l.windows {
		if w.duration == d {
			limit = w.limit
		}
	}
	if limit == 0 {
		return 0, fmt.Errorf("ratelimit: no %s window configured", d)
	}
	redisKey := l.key(key, d)
	windowStart := l.clock.Now().Add(-d).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	zcard := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: remaining: %w", err)
	}
	if left := int64(limit) - zcard.Val(); left > 0 {
		return left, nil
	}
	return 0, nil
}

// Reset clears every window for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	keys := make([]string, 0, len(l.windows))
	for _, w := range l.windows {
		keys = append(keys, l.key(key, w.duration))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset %s: %w", key, err)
	}
	return nil
}

func (l *RedisLimiter) key(identifier string, d time.Duration) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, identifier, d.String())
}
