// Package store declares the persistence collaborator used by the tracker.
// Implementations live in internal/postgres and internal/memstore.
package store

import (
	"context"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// TaskFilter narrows a task listing. Zero values match everything.
type TaskFilter struct {
	Statuses []domain.Status
	DueFrom  *time.Time
	DueTo    *time.Time
}

// Match reports whether t passes the filter.
func (f TaskFilter) Match(t *domain.Task) bool {
	if len(f.Statuses) > 0 {
		st := domain.NormalizeStatus(string(t.Status))
		found := false
		for _, s := range f.Statuses {
			if domain.NormalizeStatus(string(s)) == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && !t.DueDate.Before(*f.DueTo) {
		return false
	}
	return true
}

// TaskRepository persists control tasks.
type TaskRepository interface {
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id int64) error
}

// NotificationRepository persists notifications. Deleting a task removes its
// notifications as well.
type NotificationRepository interface {
	List(ctx context.Context) ([]*domain.Notification, error)
	ListByTask(ctx context.Context, taskID int64) ([]*domain.Notification, error)
	Get(ctx context.Context, id int64) (*domain.Notification, error)
	Create(ctx context.Context, n *domain.Notification) error
	// UpdateMessage rewrites the text and the due date it was rendered for.
	UpdateMessage(ctx context.Context, id int64, message string, due time.Time) error
	// UpdateResolution writes the resolution flags and leaves alert state alone.
	UpdateResolution(ctx context.Context, n *domain.Notification) error
	// MarkAlerted writes only the alert columns.
	MarkAlerted(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, ids []int64) error
}

// DepartmentTaskFilter narrows a department task listing.
type DepartmentTaskFilter struct {
	Completed *bool
}

// DepartmentRepository persists departments and department tasks.
type DepartmentRepository interface {
	ListDepartments(ctx context.Context) ([]*domain.Department, error)
	CreateDepartment(ctx context.Context, d *domain.Department) error
	ListTasks(ctx context.Context, filter DepartmentTaskFilter) ([]*domain.DepartmentTask, error)
	GetTask(ctx context.Context, id int64) (*domain.DepartmentTask, error)
	CreateTask(ctx context.Context, t *domain.DepartmentTask) error
	UpdateTask(ctx context.Context, t *domain.DepartmentTask) error
}

// ExecutorRepository persists the executor registry. List is ordered by
// full name.
type ExecutorRepository interface {
	List(ctx context.Context) ([]*domain.Executor, error)
	Get(ctx context.Context, id int64) (*domain.Executor, error)
	Create(ctx context.Context, e *domain.Executor) error
	Update(ctx context.Context, e *domain.Executor) error
	Delete(ctx context.Context, id int64) error
}

// SettingsRepository persists the single application settings row.
type SettingsRepository interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Tasks() TaskRepository
	Notifications() NotificationRepository
	Departments() DepartmentRepository
	Executors() ExecutorRepository
	Settings() SettingsRepository

	// InTx runs fn against a transactional view of the store. Rows read
	// through the view are locked until fn returns. A non-nil error from
	// fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// LockGeneration serializes generation passes across processes until the
	// enclosing InTx returns. Outside InTx it does nothing.
	LockGeneration(ctx context.Context) error

	// NormalizeStatuses rewrites legacy status labels to canonical ones.
	NormalizeStatuses(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}
