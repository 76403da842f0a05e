package kafka

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

const (
	TopicAlerts     = "controls.alerts"
	TopicAlertsDLQ  = "controls.alerts.dlq"
	TopicTaskEvents = "controls.task-events"
)

// TaskEvent tells other processes that a task changed.
type TaskEvent struct {
	Type   string    `json:"type"`
	TaskID int64     `json:"task_id"`
	At     time.Time `json:"at"`
}

const EventTaskChanged = "task.changed"

// TaskEventPublisher publishes a TaskEvent whenever OnTaskChanged is called.
type TaskEventPublisher struct {
	producer Producer
	logger   *slog.Logger
}

func NewTaskEventPublisher(p Producer, logger *slog.Logger) *TaskEventPublisher {
	return &TaskEventPublisher{producer: p, logger: logger}
}

// OnTaskChanged publishes best-effort; failures are only logged.
func (p *TaskEventPublisher) OnTaskChanged(ctx context.Context, taskID int64) {
	ev := TaskEvent{Type: EventTaskChanged, TaskID: taskID, At: time.Now().UTC()}
	if err := PublishJSON(ctx, p.producer, TopicTaskEvents, strconv.FormatInt(taskID, 10), ev); err != nil {
		p.logger.Warn("publish task event",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()),
		)
	}
}
