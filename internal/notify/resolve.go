package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

// resolution describes one user action on a notification. accepts gates the
// action on the notification kind; a rejected kind is a silent no-op. apply
// mutates the notification and, when it returns true, the task as well.
type resolution struct {
	action  string
	accepts func(domain.Kind) bool
	apply   func(n *domain.Notification, task *domain.Task, now time.Time) bool
}

func anyKind(domain.Kind) bool { return true }

func onlyKind(k domain.Kind) func(domain.Kind) bool {
	return func(got domain.Kind) bool { return got == k }
}

// MarkAcknowledged records that the user saw a due-tomorrow notification.
func (m *Manager) MarkAcknowledged(ctx context.Context, id int64) error {
	return m.resolve(ctx, id, resolution{
		action:  "acknowledge",
		accepts: onlyKind(domain.KindDueTomorrow),
		apply: func(n *domain.Notification, _ *domain.Task, _ time.Time) bool {
			n.Acknowledged = true
			n.Read = true
			return false
		},
	})
}

// MarkReportSent records an outgoing report. outgoingDate defaults to today.
// A cyclic task moves to its next due date; any other task is completed.
func (m *Manager) MarkReportSent(ctx context.Context, id int64, outgoingNumber string, outgoingDate *time.Time) error {
	number := strings.TrimSpace(outgoingNumber)
	if number == "" {
		return &domain.ValidationError{Field: "outgoing_number", Reason: "must not be empty"}
	}
	return m.resolve(ctx, id, resolution{
		action:  "report_sent",
		accepts: anyKind,
		apply: func(n *domain.Notification, task *domain.Task, now time.Time) bool {
			date := domain.StartOfDay(now)
			if outgoingDate != nil {
				date = *outgoingDate
			}
			n.ReportSent = true
			n.OutgoingNumber = number
			n.OutgoingDate = &date
			n.AwaitingReport = false
			n.Read = true
			if task == nil {
				return false
			}
			closeCycle(task, now, domain.IntermediateResponse{Date: date, OutgoingNumber: number},
				domain.ActionReportSent, domain.ActionReportSentFinal)
			return true
		},
	})
}

// MarkCompletedInWorkingOrder records that a due-today task was handled
// without a formal report.
func (m *Manager) MarkCompletedInWorkingOrder(ctx context.Context, id int64) error {
	return m.resolve(ctx, id, resolution{
		action:  "working_order",
		accepts: onlyKind(domain.KindDueToday),
		apply: func(n *domain.Notification, task *domain.Task, now time.Time) bool {
			n.CompletedInWorkingOrder = true
			n.Read = true
			if task == nil {
				return false
			}
			closeCycle(task, now, domain.IntermediateResponse{Date: domain.StartOfDay(now)},
				domain.ActionWorkingOrder, domain.ActionWorkingOrderFinal)
			return true
		},
	})
}

// MarkAwaitingReport parks a notification until a report is sent. The task
// is not touched.
func (m *Manager) MarkAwaitingReport(ctx context.Context, id int64) error {
	return m.resolve(ctx, id, resolution{
		action:  "awaiting_report",
		accepts: anyKind,
		apply: func(n *domain.Notification, _ *domain.Task, _ time.Time) bool {
			n.AwaitingReport = true
			n.Read = true
			return false
		},
	})
}

// closeCycle appends the audit entry and then either advances a cyclic task
// or completes a one-shot one. The entry records the due date before the move.
func closeCycle(task *domain.Task, now time.Time, entry domain.IntermediateResponse, cyclic, final domain.ActionKind) {
	entry.OriginalDueDate = task.DueDate
	if task.IsCyclic() {
		entry.Action = cyclic
		task.DueDate = domain.NextDueDate(task, now)
		task.Status = domain.StatusInProgress
	} else {
		entry.Action = final
		task.Status = domain.StatusCompleted
		done := now
		task.CompletedAt = &done
	}
	task.Responses = append(task.Responses, entry)
}

// alreadyResolved is true once any final resolution flag is set, even when
// the flag does not make this kind processed.
func alreadyResolved(n *domain.Notification) bool {
	return n.IsProcessed() || n.ReportSent || n.CompletedInWorkingOrder
}

func (m *Manager) resolve(ctx context.Context, id int64, r resolution) error {
	ctx, span := m.tracer.Start(ctx, "notify."+r.action)
	defer span.End()
	span.SetAttributes(attribute.Int64("notification.id", id))

	var (
		applied bool
		taskID  int64
	)
	err := m.store.InTx(ctx, func(tx store.Store) error {
		n, err := tx.Notifications().Get(ctx, id)
		if err != nil {
			return err
		}
		if !r.accepts(n.Kind) {
			return nil
		}
		if alreadyResolved(n) {
			return &domain.NotificationAlreadyResolvedError{NotificationID: n.ID, Kind: n.Kind}
		}

		task, err := tx.Tasks().Get(ctx, n.TaskID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("load task %d: %w", n.TaskID, err)
		}
		// the next generation pass drops the stale notification
		if task != nil && task.IsFinished() {
			return &domain.TaskFinishedError{TaskID: task.ID, Status: task.Status}
		}

		taskChanged := r.apply(n, task, m.clock.Now())
		if err := tx.Notifications().UpdateResolution(ctx, n); err != nil {
			return fmt.Errorf("save notification %d: %w", n.ID, err)
		}
		if taskChanged {
			if err := tx.Tasks().Update(ctx, task); err != nil {
				return fmt.Errorf("save task %d: %w", task.ID, err)
			}
		}
		applied, taskID = true, n.TaskID
		return nil
	})

	if err != nil {
		var resolved *domain.NotificationAlreadyResolvedError
		var notFound *domain.NotificationNotFoundError
		var finished *domain.TaskFinishedError
		result := "error"
		if errors.As(err, &resolved) || errors.As(err, &notFound) || errors.As(err, &finished) {
			result = "rejected"
		}
		telemetry.ResolutionsTotal.WithLabelValues(r.action, result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, r.action+" failed")
		m.logger.Warn("resolution failed",
			slog.String("action", r.action),
			slog.Int64("notification_id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s notification %d: %w", r.action, id, err)
	}

	if !applied {
		telemetry.ResolutionsTotal.WithLabelValues(r.action, "noop").Inc()
		return nil
	}
	telemetry.ResolutionsTotal.WithLabelValues(r.action, "ok").Inc()
	m.logger.Info("notification resolved",
		slog.String("action", r.action),
		slog.Int64("notification_id", id),
		slog.Int64("task_id", taskID),
	)
	m.TaskChanged(ctx, taskID)
	return nil
}
