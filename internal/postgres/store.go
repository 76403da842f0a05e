// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres store. Inside InTx, single-row reads take row locks.
type Store struct {
	pool   *pgxpool.Pool
	q      querier
	inTx   bool
	logger *slog.Logger
	loc    *time.Location
}

// New wraps pool. Timestamps are returned in loc (time.Local when nil).
func New(pool *pgxpool.Pool, logger *slog.Logger, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{pool: pool, q: pool, logger: logger, loc: loc}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Tasks() store.TaskRepository                 { return taskRepo{s} }
func (s *Store) Notifications() store.NotificationRepository { return noteRepo{s} }
func (s *Store) Departments() store.DepartmentRepository     { return deptRepo{s} }
func (s *Store) Executors() store.ExecutorRepository         { return execRepo{s} }
func (s *Store) Settings() store.SettingsRepository          { return settingsRepo{s} }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &domain.StoreUnavailableError{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return &domain.StoreUnavailableError{Op: "begin", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	view := &Store{pool: s.pool, q: tx, inTx: true, logger: s.logger, loc: s.loc}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// generationLockKey is the pg_advisory_xact_lock key shared by every
// tracker instance running a generation pass.
const generationLockKey int64 = 0x6374726c67656e // "ctrlgen"

// LockGeneration takes a transaction-scoped advisory lock so two generation
// passes never plan against the same snapshot. It is released on commit or
// rollback.
func (s *Store) LockGeneration(ctx context.Context) error {
	if !s.inTx {
		return nil
	}
	if _, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, generationLockKey); err != nil {
		return fmt.Errorf("generation lock: %w", err)
	}
	return nil
}

// NormalizeStatuses rewrites every legacy or mis-cased status label in one
// statement.
func (s *Store) NormalizeStatuses(ctx context.Context) (int64, error) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("CASE UPPER(TRIM(status))")
	for label, canon := range domain.LegacyStatusLabels() {
		args = append(args, label, string(canon))
		fmt.Fprintf(&b, " WHEN $%d::text THEN $%d::text", len(args)-1, len(args))
	}
	b.WriteString(" ELSE UPPER(TRIM(status)) END")
	expr := b.String()

	tag, err := s.q.Exec(ctx, "UPDATE tasks SET status = "+expr+" WHERE status <> "+expr, args...)
	if err != nil {
		return 0, fmt.Errorf("normalize statuses: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) lock() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Store) at(t time.Time) time.Time { return t.In(s.loc) }

func (s *Store) atPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(s.loc)
	return &v
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// isFKViolation matches foreign_key_violation.
func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// rowScanner is any pgx row type.
type rowScanner interface {
	Scan(dest ...any) error
}
