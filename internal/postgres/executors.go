package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

type execRepo struct{ s *Store }

func (r execRepo) List(ctx context.Context) ([]*domain.Executor, error) {
	rows, err := r.s.q.Query(ctx, `SELECT id, position, full_name FROM executors ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list executors: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Executor, error) {
		var e domain.Executor
		err := row.Scan(&e.ID, &e.Position, &e.FullName)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("list executors: %w", err)
	}
	return out, nil
}

func (r execRepo) Get(ctx context.Context, id int64) (*domain.Executor, error) {
	var e domain.Executor
	err := r.s.q.QueryRow(ctx,
		`SELECT id, position, full_name FROM executors WHERE id = $1`+r.s.lock(), id,
	).Scan(&e.ID, &e.Position, &e.FullName)
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.ExecutorNotFoundError{ExecutorID: id}
		}
		return nil, fmt.Errorf("get executor %d: %w", id, err)
	}
	return &e, nil
}

func (r execRepo) Create(ctx context.Context, e *domain.Executor) error {
	err := r.s.q.QueryRow(ctx,
		`INSERT INTO executors (position, full_name) VALUES ($1, $2) RETURNING id`,
		e.Position, e.FullName,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("create executor %q: %w", e.FullName, err)
	}
	return nil
}

func (r execRepo) Update(ctx context.Context, e *domain.Executor) error {
	tag, err := r.s.q.Exec(ctx,
		`UPDATE executors SET position = $1, full_name = $2 WHERE id = $3`,
		e.Position, e.FullName, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update executor %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ExecutorNotFoundError{ExecutorID: e.ID}
	}
	return nil
}

func (r execRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.s.q.Exec(ctx, `DELETE FROM executors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete executor %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ExecutorNotFoundError{ExecutorID: id}
	}
	return nil
}
