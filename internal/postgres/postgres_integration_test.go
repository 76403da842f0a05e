//go:build integration

package postgres_test

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/notify"
	"github.com/ramiqadoumi/go-control-tracker/internal/postgres"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/pkg/clock"
)

var testPostgresDSN string

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()
	ctr, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("controls"),
		tcPostgres.WithUsername("controls"),
		tcPostgres.WithPassword("controls"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer ctr.Terminate(ctx) //nolint:errcheck

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("postgres connection string: %v", err)
	}
	testPostgresDSN = dsn

	if err := postgres.Migrate(dsn); err != nil {
		log.Fatalf("run migrations: %v", err)
	}
	return m.Run()
}

func newStore(t *testing.T) (*postgres.Store, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, testPostgresDSN)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "TRUNCATE notifications, tasks, department_task_assignments, department_tasks, departments, executors RESTART IDENTITY CASCADE") //nolint:errcheck
		pool.Close()
	})
	return postgres.New(pool, slog.Default(), time.UTC), pool
}

func due(days int) time.Time {
	return domain.EndOfDay(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days))
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	require.NoError(t, postgres.Migrate(testPostgresDSN))
	v, err := postgres.MigrationVersion(testPostgresDSN)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func TestPostgres_TaskRoundTrip(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	task := &domain.Task{
		Title:       "Quarterly report",
		Recurrence:  domain.RecurrenceCustomDates,
		Status:      domain.StatusNew,
		Importance:  domain.ImportanceHigh,
		Urgency:     domain.UrgencyUrgent,
		DueDate:     due(0),
		CustomDates: []time.Time{time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		Responses: []domain.IntermediateResponse{{
			Date: due(-7), Action: domain.ActionReportSent, OutgoingNumber: "12", OriginalDueDate: due(-7),
		}},
	}
	require.NoError(t, s.Tasks().Create(ctx, task))
	require.NotZero(t, task.ID)

	got, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.True(t, task.DueDate.Equal(got.DueDate))
	require.Len(t, got.CustomDates, 1)
	assert.Equal(t, "2024-06-01", got.CustomDates[0].Format("2006-01-02"))
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "12", got.Responses[0].OutgoingNumber)

	got.Status = domain.StatusCancelled
	require.NoError(t, s.Tasks().Update(ctx, got))
	list, err := s.Tasks().List(ctx, store.TaskFilter{Statuses: []domain.Status{domain.StatusCancelled}})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	var nf *domain.TaskNotFoundError
	_, err = s.Tasks().Get(ctx, 9999)
	assert.ErrorAs(t, err, &nf)
}

func TestPostgres_MalformedJSONColumnsStillLoad(t *testing.T) {
	s, pool := newStore(t)
	ctx := context.Background()
	task := &domain.Task{Title: "legacy", Recurrence: domain.RecurrenceOnce, Status: domain.StatusNew, DueDate: due(0)}
	require.NoError(t, s.Tasks().Create(ctx, task))

	_, err := pool.Exec(ctx, `UPDATE tasks SET responses = 'not json', custom_dates = '["bad"]' WHERE id = $1`, task.ID)
	require.NoError(t, err)

	got, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Responses)
	assert.Empty(t, got.CustomDates)
}

func TestPostgres_NormalizeStatuses(t *testing.T) {
	s, pool := newStore(t)
	ctx := context.Background()
	for _, label := range []string{"In Work", "done", "NEW", "Canceled"} {
		task := &domain.Task{Title: label, Recurrence: domain.RecurrenceOnce, Status: domain.Status(label), DueDate: due(0)}
		require.NoError(t, s.Tasks().Create(ctx, task))
	}

	n, err := s.NormalizeStatuses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	rows, err := pool.Query(ctx, `SELECT status FROM tasks ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()
	var got []string
	for rows.Next() {
		var st string
		require.NoError(t, rows.Scan(&st))
		got = append(got, st)
	}
	assert.Equal(t, []string{"IN_PROGRESS", "COMPLETED", "NEW", "CANCELLED"}, got)

	n, err = s.NormalizeStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgres_NotificationsCascadeWithTask(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	task := &domain.Task{Title: "a", Recurrence: domain.RecurrenceOnce, Status: domain.StatusNew, DueDate: due(0)}
	require.NoError(t, s.Tasks().Create(ctx, task))
	n := &domain.Notification{TaskID: task.ID, Kind: domain.KindDueToday, Message: "m", DueDate: due(0)}
	require.NoError(t, s.Notifications().Create(ctx, n))

	require.NoError(t, s.Tasks().Delete(ctx, task.ID))
	notes, err := s.Notifications().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	var nf *domain.TaskNotFoundError
	err = s.Notifications().Create(ctx, &domain.Notification{TaskID: task.ID, Kind: domain.KindDueToday, Message: "m"})
	assert.ErrorAs(t, err, &nf)
}

func TestPostgres_ResolutionThroughManager(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	mgr := notify.NewManager(s, notify.WithClock(clock.NewFake(now)))

	task := &domain.Task{Title: "weekly", Recurrence: domain.RecurrenceWeekly, Status: domain.StatusNew, DueDate: due(0)}
	require.NoError(t, s.Tasks().Create(ctx, task))

	res, err := mgr.GenerateNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	notes, err := s.Notifications().ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	require.NoError(t, mgr.MarkReportSent(ctx, notes[0].ID, "42", nil))
	err = mgr.MarkReportSent(ctx, notes[0].ID, "43", nil)
	var resolved *domain.NotificationAlreadyResolvedError
	assert.ErrorAs(t, err, &resolved)

	got, err := s.Tasks().Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.True(t, due(7).Equal(got.DueDate))
	assert.Len(t, got.Responses, 1)
}

// TestPostgres_ConcurrentGenerationKeepsOneOpen runs overlapping passes, as
// a manual trigger racing the timer would, and expects no duplicate rows.
func TestPostgres_ConcurrentGenerationKeepsOneOpen(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		task := &domain.Task{Title: "t", Recurrence: domain.RecurrenceOnce, Status: domain.StatusNew, DueDate: due(-i)}
		require.NoError(t, s.Tasks().Create(ctx, task))
	}

	const passes = 6
	var wg sync.WaitGroup
	errs := make(chan error, passes)
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mgr := notify.NewManager(s, notify.WithClock(clock.NewFake(now)))
			_, err := mgr.GenerateNotifications(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	notes, err := s.Notifications().List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 5, "one open notification per task")
}

func TestPostgres_Executors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	e := &domain.Executor{FullName: "Petrov Ivan Sergeevich", Position: "Engineer"}
	require.NoError(t, s.Executors().Create(ctx, e))
	require.NoError(t, s.Executors().Create(ctx, &domain.Executor{FullName: "Abramov Oleg", Position: "Head"}))

	list, err := s.Executors().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Abramov Oleg", list[0].FullName)

	e.Position = "Senior engineer"
	require.NoError(t, s.Executors().Update(ctx, e))
	got, err := s.Executors().Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Senior engineer", got.Position)
	assert.Equal(t, "Petrov I.S.", got.ShortName())

	require.NoError(t, s.Executors().Delete(ctx, e.ID))
	var enf *domain.ExecutorNotFoundError
	_, err = s.Executors().Get(ctx, e.ID)
	assert.ErrorAs(t, err, &enf)
}

func TestPostgres_Departments(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	hr := &domain.Department{ShortName: "HR", FullName: "Human resources"}
	it := &domain.Department{ShortName: "IT", FullName: "Information technology"}
	require.NoError(t, s.Departments().CreateDepartment(ctx, hr))
	require.NoError(t, s.Departments().CreateDepartment(ctx, it))

	dt := &domain.DepartmentTask{
		Number: "7/15", SentAt: due(-3), DueDate: due(4), Importance: domain.ImportanceStandard,
		Assignments: []domain.DepartmentAssignment{{DepartmentID: hr.ID}, {DepartmentID: it.ID}},
	}
	require.NoError(t, s.Departments().CreateTask(ctx, dt))

	got, err := s.Departments().GetTask(ctx, dt.ID)
	require.NoError(t, err)
	require.Len(t, got.Assignments, 2)

	done := due(0)
	for i := range got.Assignments {
		got.Assignments[i].Completed = true
		got.Assignments[i].CompletedAt = &done
	}
	require.NoError(t, s.Departments().UpdateTask(ctx, got))

	completed := true
	list, err := s.Departments().ListTasks(ctx, store.DepartmentTaskFilter{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsCompleted())

	var dnf *domain.DepartmentNotFoundError
	err = s.Departments().CreateTask(ctx, &domain.DepartmentTask{
		Number: "x", SentAt: due(0), DueDate: due(1),
		Assignments: []domain.DepartmentAssignment{{DepartmentID: 999}},
	})
	assert.ErrorAs(t, err, &dnf)
}

func TestPostgres_Settings(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	got, err := s.Settings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)

	require.NoError(t, s.Settings().Save(ctx, domain.Settings{OverdueInterval: 5 * time.Minute}))
	got, err = s.Settings().Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, got.OverdueInterval)
	assert.Equal(t, 30*time.Minute, got.CheckInterval)
}
