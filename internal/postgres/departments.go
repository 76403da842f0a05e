package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

type deptRepo struct{ s *Store }

func (r deptRepo) ListDepartments(ctx context.Context) ([]*domain.Department, error) {
	rows, err := r.s.q.Query(ctx, `SELECT id, short_name, full_name FROM departments ORDER BY short_name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.ShortName, &d.FullName); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r deptRepo) CreateDepartment(ctx context.Context, d *domain.Department) error {
	err := r.s.q.QueryRow(ctx,
		`INSERT INTO departments (short_name, full_name) VALUES ($1, $2) RETURNING id`,
		d.ShortName, d.FullName,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("create department %q: %w", d.ShortName, err)
	}
	return nil
}

const deptTaskColumns = `id, number, description, source, notes, importance, sent_at, due_date,
	forced_completed, forced_completed_at, created_at`

// ListTasks loads department tasks with their assignments. Completion is
// derived from the assignments, so the filter is applied after loading.
func (r deptRepo) ListTasks(ctx context.Context, filter store.DepartmentTaskFilter) ([]*domain.DepartmentTask, error) {
	rows, err := r.s.q.Query(ctx, "SELECT "+deptTaskColumns+" FROM department_tasks ORDER BY due_date, id")
	if err != nil {
		return nil, fmt.Errorf("list department tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.DepartmentTask, error) {
		return r.scanTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list department tasks: %w", err)
	}

	byID := make(map[int64]*domain.DepartmentTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	if err := r.loadAssignments(ctx, byID); err != nil {
		return nil, err
	}

	out := tasks[:0]
	for _, t := range tasks {
		if filter.Completed != nil && t.IsCompleted() != *filter.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r deptRepo) GetTask(ctx context.Context, id int64) (*domain.DepartmentTask, error) {
	row := r.s.q.QueryRow(ctx, "SELECT "+deptTaskColumns+" FROM department_tasks WHERE id = $1"+r.s.lock(), id)
	t, err := r.scanTask(row)
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.DepartmentTaskNotFoundError{TaskID: id}
		}
		return nil, fmt.Errorf("get department task %d: %w", id, err)
	}
	if err := r.loadAssignments(ctx, map[int64]*domain.DepartmentTask{id: t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r deptRepo) CreateTask(ctx context.Context, t *domain.DepartmentTask) error {
	return r.s.InTx(ctx, func(tx store.Store) error {
		q := tx.(*Store).q
		err := q.QueryRow(ctx, `
			INSERT INTO department_tasks
				(number, description, source, notes, importance, sent_at, due_date,
				 forced_completed, forced_completed_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
			RETURNING id, created_at
		`, t.Number, t.Description, t.Source, t.Notes, string(t.Importance), t.SentAt, t.DueDate,
			t.ForcedCompleted, t.ForcedCompleteAt, nullTime(t.CreatedAt),
		).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("create department task %q: %w", t.Number, err)
		}
		return insertAssignments(ctx, q, t)
	})
}

func (r deptRepo) UpdateTask(ctx context.Context, t *domain.DepartmentTask) error {
	return r.s.InTx(ctx, func(tx store.Store) error {
		q := tx.(*Store).q
		tag, err := q.Exec(ctx, `
			UPDATE department_tasks SET
				number = $1, description = $2, source = $3, notes = $4, importance = $5,
				sent_at = $6, due_date = $7, forced_completed = $8, forced_completed_at = $9
			WHERE id = $10
		`, t.Number, t.Description, t.Source, t.Notes, string(t.Importance),
			t.SentAt, t.DueDate, t.ForcedCompleted, t.ForcedCompleteAt, t.ID)
		if err != nil {
			return fmt.Errorf("update department task %d: %w", t.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return &domain.DepartmentTaskNotFoundError{TaskID: t.ID}
		}
		if _, err := q.Exec(ctx, `DELETE FROM department_task_assignments WHERE task_id = $1`, t.ID); err != nil {
			return fmt.Errorf("clear assignments of %d: %w", t.ID, err)
		}
		return insertAssignments(ctx, q, t)
	})
}

func insertAssignments(ctx context.Context, q querier, t *domain.DepartmentTask) error {
	for _, a := range t.Assignments {
		_, err := q.Exec(ctx, `
			INSERT INTO department_task_assignments (task_id, department_id, completed, completed_at, notes)
			VALUES ($1, $2, $3, $4, $5)
		`, t.ID, a.DepartmentID, a.Completed, a.CompletedAt, a.Notes)
		if err != nil {
			if isFKViolation(err) {
				return &domain.DepartmentNotFoundError{DepartmentID: a.DepartmentID}
			}
			return fmt.Errorf("assign department %d to task %d: %w", a.DepartmentID, t.ID, err)
		}
	}
	return nil
}

func (r deptRepo) loadAssignments(ctx context.Context, byID map[int64]*domain.DepartmentTask) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.s.q.Query(ctx, `
		SELECT task_id, department_id, completed, completed_at, notes
		FROM department_task_assignments
		WHERE task_id = ANY($1)
		ORDER BY task_id, department_id
	`, ids)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID int64
			a      domain.DepartmentAssignment
		)
		if err := rows.Scan(&taskID, &a.DepartmentID, &a.Completed, &a.CompletedAt, &a.Notes); err != nil {
			return fmt.Errorf("scan assignment: %w", err)
		}
		a.CompletedAt = r.s.atPtr(a.CompletedAt)
		if t, ok := byID[taskID]; ok {
			t.Assignments = append(t.Assignments, a)
		}
	}
	return rows.Err()
}

func (r deptRepo) scanTask(row rowScanner) (*domain.DepartmentTask, error) {
	var (
		t          domain.DepartmentTask
		importance string
	)
	err := row.Scan(&t.ID, &t.Number, &t.Description, &t.Source, &t.Notes, &importance,
		&t.SentAt, &t.DueDate, &t.ForcedCompleted, &t.ForcedCompleteAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Importance = domain.Importance(importance)
	t.SentAt = r.s.at(t.SentAt)
	t.DueDate = r.s.at(t.DueDate)
	t.CreatedAt = r.s.at(t.CreatedAt)
	t.ForcedCompleteAt = r.s.atPtr(t.ForcedCompleteAt)
	return &t, nil
}
