package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const deliveryTTL = 24 * time.Hour

func deliveryKey(alertID string) string { return "alert:delivered:" + alertID }

// DeliveryStore remembers which alerts the alerter already delivered so a
// redelivered Kafka message is not sent twice.
type DeliveryStore interface {
	// Claim marks alertID as taken and reports whether this caller was first.
	Claim(ctx context.Context, alertID string) (bool, error)
	// Release forgets a claim after a failed delivery.
	Release(ctx context.Context, alertID string) error
}

type deliveryStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeliveryStore(client *redis.Client) DeliveryStore {
	return &deliveryStore{client: client, ttl: deliveryTTL}
}

func (s *deliveryStore) Claim(ctx context.Context, alertID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, deliveryKey(alertID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim alert %s: %w", alertID, err)
	}
	return ok, nil
}

func (s *deliveryStore) Release(ctx context.Context, alertID string) error {
	if err := s.client.Del(ctx, deliveryKey(alertID)).Err(); err != nil {
		return fmt.Errorf("redis release alert %s: %w", alertID, err)
	}
	return nil
}
