package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const countKey = "notifications:unprocessed"

// ErrCacheMiss is returned when no count is cached.
var ErrCacheMiss = errors.New("count not cached")

// CountCache holds the open-notification count the tracker publishes after
// every generation pass, so UI badges need not hit Postgres.
type CountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCountCache keeps a count for ttl; a stale replica's value expires.
func NewCountCache(client *redis.Client, ttl time.Duration) *CountCache {
	return &CountCache{client: client, ttl: ttl}
}

func (c *CountCache) Set(ctx context.Context, count int) error {
	if err := c.client.Set(ctx, countKey, count, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set count: %w", err)
	}
	return nil
}

func (c *CountCache) Get(ctx context.Context) (int, error) {
	n, err := c.client.Get(ctx, countKey).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("redis get count: %w", err)
	}
	return n, nil
}

func (c *CountCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, countKey).Err(); err != nil {
		return fmt.Errorf("redis invalidate count: %w", err)
	}
	return nil
}
