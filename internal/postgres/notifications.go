package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

const noteColumns = `id, task_id, kind, message, due_date, created_at, is_read, acknowledged,
	report_sent, outgoing_number, outgoing_date, completed_in_working_order,
	awaiting_report, os_alert_sent, last_os_alert_at`

type noteRepo struct{ s *Store }

func (r noteRepo) List(ctx context.Context) ([]*domain.Notification, error) {
	return r.query(ctx, "SELECT "+noteColumns+" FROM notifications ORDER BY id")
}

func (r noteRepo) ListByTask(ctx context.Context, taskID int64) ([]*domain.Notification, error) {
	return r.query(ctx, "SELECT "+noteColumns+" FROM notifications WHERE task_id = $1 ORDER BY id", taskID)
}

func (r noteRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Notification, error) {
	rows, err := r.s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r noteRepo) Get(ctx context.Context, id int64) (*domain.Notification, error) {
	row := r.s.q.QueryRow(ctx, "SELECT "+noteColumns+" FROM notifications WHERE id = $1"+r.s.lock(), id)
	n, err := r.scan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.NotificationNotFoundError{NotificationID: id}
		}
		return nil, err
	}
	return n, nil
}

func (r noteRepo) Create(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	err := r.s.q.QueryRow(ctx, `
		INSERT INTO notifications (task_id, kind, message, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, n.TaskID, string(n.Kind), n.Message, nullTime(n.DueDate), n.CreatedAt).Scan(&n.ID)
	if err != nil {
		if isFKViolation(err) {
			return &domain.TaskNotFoundError{TaskID: n.TaskID}
		}
		return fmt.Errorf("create notification for task %d: %w", n.TaskID, err)
	}
	return nil
}

func (r noteRepo) UpdateMessage(ctx context.Context, id int64, message string, due time.Time) error {
	return r.exec(ctx, id, `UPDATE notifications SET message = $1, due_date = $2 WHERE id = $3`,
		message, nullTime(due), id)
}

func (r noteRepo) UpdateResolution(ctx context.Context, n *domain.Notification) error {
	return r.exec(ctx, n.ID, `
		UPDATE notifications SET
			is_read = $1, acknowledged = $2, report_sent = $3, outgoing_number = $4,
			outgoing_date = $5, completed_in_working_order = $6, awaiting_report = $7
		WHERE id = $8
	`, n.Read, n.Acknowledged, n.ReportSent, n.OutgoingNumber,
		n.OutgoingDate, n.CompletedInWorkingOrder, n.AwaitingReport, n.ID)
}

func (r noteRepo) MarkAlerted(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, id, `UPDATE notifications SET os_alert_sent = TRUE, last_os_alert_at = $1 WHERE id = $2`, at, id)
}

func (r noteRepo) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.s.q.Exec(ctx, `DELETE FROM notifications WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("delete %d notifications: %w", len(ids), err)
	}
	return nil
}

func (r noteRepo) exec(ctx context.Context, id int64, sql string, args ...any) error {
	tag, err := r.s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update notification %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotificationNotFoundError{NotificationID: id}
	}
	return nil
}

func (r noteRepo) scan(row rowScanner) (*domain.Notification, error) {
	var (
		n    domain.Notification
		kind string
		due  *time.Time
	)
	err := row.Scan(
		&n.ID, &n.TaskID, &kind, &n.Message, &due, &n.CreatedAt, &n.Read, &n.Acknowledged,
		&n.ReportSent, &n.OutgoingNumber, &n.OutgoingDate, &n.CompletedInWorkingOrder,
		&n.AwaitingReport, &n.OSAlertSent, &n.LastOSAlertAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.Kind = domain.Kind(kind)
	if due != nil {
		n.DueDate = r.s.at(*due)
	}
	n.CreatedAt = r.s.at(n.CreatedAt)
	n.OutgoingDate = r.s.atPtr(n.OutgoingDate)
	n.LastOSAlertAt = r.s.atPtr(n.LastOSAlertAt)
	return &n, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
