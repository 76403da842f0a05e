// Package alert carries deadline alerts from the notification passes to
// whatever delivers them to a person.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/kafka"
)

// Alert is one outbound reminder for an open notification.
type Alert struct {
	ID             string      `json:"id"`
	NotificationID int64       `json:"notification_id"`
	TaskID         int64       `json:"task_id"`
	Kind           domain.Kind `json:"kind"`
	Title          string      `json:"title"`
	Body           string      `json:"body"`
	CreatedAt      time.Time   `json:"created_at"`
}

// New builds the alert for n.
func New(n *domain.Notification, now time.Time) Alert {
	return Alert{
		ID:             uuid.New().String(),
		NotificationID: n.ID,
		TaskID:         n.TaskID,
		Kind:           n.Kind,
		Title:          n.Kind.Title(),
		Body:           n.Message,
		CreatedAt:      now,
	}
}

// Dispatcher hands an alert off for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Alert) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, a Alert) error

func (f DispatcherFunc) Dispatch(ctx context.Context, a Alert) error { return f(ctx, a) }

// KafkaDispatcher publishes alerts for the alerter service to deliver.
type KafkaDispatcher struct {
	producer kafka.Producer
	topic    string
}

func NewKafkaDispatcher(p kafka.Producer) *KafkaDispatcher {
	return &KafkaDispatcher{producer: p, topic: kafka.TopicAlerts}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, a Alert) error {
	return kafka.PublishJSON(ctx, d.producer, d.topic, strconv.FormatInt(a.NotificationID, 10), a)
}

// LogDispatcher only writes the alert to the log.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, a Alert) error {
	d.logger.Info("alert",
		slog.Int64("notification_id", a.NotificationID),
		slog.Int64("task_id", a.TaskID),
		slog.String("kind", string(a.Kind)),
		slog.String("title", a.Title),
		slog.String("body", a.Body),
	)
	return nil
}

// Multi sends to every dispatcher and succeeds if at least one did.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, a Alert) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	if len(m) > 0 && len(errs) == len(m) {
		return fmt.Errorf("all dispatchers failed: %w", errors.Join(errs...))
	}
	return nil
}

// Decode parses an alert published by KafkaDispatcher.
func Decode(raw []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(raw, &a); err != nil {
		return Alert{}, fmt.Errorf("decode alert: %w", err)
	}
	if a.NotificationID == 0 || !a.Kind.Valid() {
		return Alert{}, fmt.Errorf("decode alert: missing notification id or kind")
	}
	return a, nil
}
