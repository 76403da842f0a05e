package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/codec"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

const taskColumns = `id, title, description, control_number, assignee, notes,
	importance, urgency, recurrence, status, due_date, custom_dates, responses,
	created_at, updated_at, completed_at`

type taskRepo struct{ s *Store }

func (r taskRepo) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	// Stored labels may still be legacy ones, so statuses are filtered in Go.
	var (
		where []string
		args  []any
	)
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		where = append(where, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		where = append(where, fmt.Sprintf("due_date < $%d", len(args)))
	}
	sql := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY due_date, id"

	rows, err := r.s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		if filter.Match(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, rows.Err()
}

func (r taskRepo) Get(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.s.q.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1"+r.s.lock(), id)
	t, err := r.scan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.TaskNotFoundError{TaskID: id}
		}
		return nil, err
	}
	return t, nil
}

func (r taskRepo) Create(ctx context.Context, t *domain.Task) error {
	dates, responses, err := encodeTaskJSON(t)
	if err != nil {
		return err
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	err = r.s.q.QueryRow(ctx, `
		INSERT INTO tasks
			(title, description, control_number, assignee, notes, importance, urgency,
			 recurrence, status, due_date, custom_dates, responses, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`,
		t.Title, t.Description, t.ControlNumber, t.Assignee, t.Notes,
		string(t.Importance), string(t.Urgency), string(t.Recurrence), string(t.Status),
		t.DueDate, dates, responses, t.CreatedAt, t.UpdatedAt, t.CompletedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r taskRepo) Update(ctx context.Context, t *domain.Task) error {
	dates, responses, err := encodeTaskJSON(t)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	tag, err := r.s.q.Exec(ctx, `
		UPDATE tasks SET
			title = $1, description = $2, control_number = $3, assignee = $4, notes = $5,
			importance = $6, urgency = $7, recurrence = $8, status = $9, due_date = $10,
			custom_dates = $11, responses = $12, updated_at = $13, completed_at = $14
		WHERE id = $15
	`,
		t.Title, t.Description, t.ControlNumber, t.Assignee, t.Notes,
		string(t.Importance), string(t.Urgency), string(t.Recurrence), string(t.Status),
		t.DueDate, dates, responses, t.UpdatedAt, t.CompletedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.TaskNotFoundError{TaskID: t.ID}
	}
	return nil
}

func (r taskRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.s.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.TaskNotFoundError{TaskID: id}
	}
	return nil
}

func encodeTaskJSON(t *domain.Task) (dates *string, responses string, err error) {
	if len(t.CustomDates) > 0 {
		raw, err := codec.EncodeDates(t.CustomDates)
		if err != nil {
			return nil, "", err
		}
		s := string(raw)
		dates = &s
	}
	raw, err := codec.EncodeResponses(t.Responses)
	if err != nil {
		return nil, "", err
	}
	return dates, string(raw), nil
}

// scan reads a task row. Malformed JSON columns decode to empty values and
// are logged; the row itself still loads.
func (r taskRepo) scan(row rowScanner) (*domain.Task, error) {
	var (
		t                                domain.Task
		importance, urgency, rec, status string
		dates                            *string
		responses                        string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.ControlNumber, &t.Assignee, &t.Notes,
		&importance, &urgency, &rec, &status, &t.DueDate, &dates, &responses,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.Importance = domain.Importance(importance)
	t.Urgency = domain.Urgency(urgency)
	t.Recurrence = domain.RecurrenceType(rec)
	t.Status = domain.Status(status)
	t.DueDate = r.s.at(t.DueDate)
	t.CreatedAt = r.s.at(t.CreatedAt)
	t.UpdatedAt = r.s.at(t.UpdatedAt)
	t.CompletedAt = r.s.atPtr(t.CompletedAt)

	if dates != nil {
		if t.CustomDates, err = codec.DecodeDates([]byte(*dates), r.s.loc); err != nil {
			r.s.logger.Debug("ignoring custom dates", slog.Int64("task_id", t.ID), slog.String("error", err.Error()))
		}
	}
	if t.Responses, err = codec.DecodeResponses([]byte(responses)); err != nil {
		r.s.logger.Debug("ignoring responses", slog.Int64("task_id", t.ID), slog.String("error", err.Error()))
	}
	return &t, nil
}
