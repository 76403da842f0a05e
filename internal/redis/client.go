// Package redis holds the Redis-backed pieces shared by the tracker and the
// alerter: leader election, the alert rate limiter, the alert delivery
// ledger and the open-notification counter.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a Redis client with short timeouts. Callers treat Redis
// as optional and fall back when it is slow or down.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}
