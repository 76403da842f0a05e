package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LeaderKey = "tracker:leader"
	LeaderTTL = 30 * time.Second
)

var renewScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Leader elects one tracker replica to run the notification passes.
type Leader struct {
	client     *redis.Client
	key        string
	ttl        time.Duration
	instanceID string
	logger     *slog.Logger
	held       bool
}

func NewLeader(client *redis.Client, instanceID string, logger *slog.Logger) *Leader {
	return &Leader{
		client:     client,
		key:        LeaderKey,
		ttl:        LeaderTTL,
		instanceID: instanceID,
		logger:     logger,
	}
}

// WithTTL overrides the lease length.
func (l *Leader) WithTTL(ttl time.Duration) *Leader {
	l.ttl = ttl
	return l
}

// Acquire takes or renews the lease and reports whether this instance holds
// it. Redis errors count as not leading.
func (l *Leader) Acquire(ctx context.Context) bool {
	ok, err := l.client.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		l.logger.Error("leader election SetNX", slog.String("error", err.Error()))
		return l.set(false)
	}
	if ok {
		return l.set(true)
	}

	result, err := renewScript.Run(ctx, l.client, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Error("leader renewal", slog.String("error", err.Error()))
		return l.set(false)
	}
	return l.set(result == 1)
}

// Release drops the lease if this instance holds it.
func (l *Leader) Release(ctx context.Context) {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.instanceID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("leader release", slog.String("error", err.Error()))
	}
	l.held = false
}

func (l *Leader) set(held bool) bool {
	if held != l.held {
		if held {
			l.logger.Info("acquired tracker leadership", slog.String("instance_id", l.instanceID))
		} else {
			l.logger.Info("lost tracker leadership", slog.String("instance_id", l.instanceID))
		}
	}
	l.held = held
	return held
}
