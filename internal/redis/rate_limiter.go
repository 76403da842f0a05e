package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter caps events per sliding window. notify.Limiter is satisfied by
// it.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
}

type slidingWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows up to limit events per window for each key.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &slidingWindowLimiter{client: client, limit: limit, window: window, now: time.Now}
}

func (r *slidingWindowLimiter) Limit() int { return r.limit }

// Allow records the event in a sorted set scored by time and counts what is
// left in the window. A denied event is removed again so it does not hold a
// slot.
func (r *slidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := r.now().UnixNano()
	rkey := "ratelimit:" + key
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()[:8]

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(now-r.window.Nanoseconds(), 10))
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now), Member: member})
	count := pipe.ZCard(ctx, rkey)
	pipe.Expire(ctx, rkey, r.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline for %q: %w", key, err)
	}

	if count.Val() <= int64(r.limit) {
		return true, nil
	}
	if err := r.client.ZRem(ctx, rkey, member).Err(); err != nil {
		return false, fmt.Errorf("rate limiter release for %q: %w", key, err)
	}
	return false, nil
}
