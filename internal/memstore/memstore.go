// Package memstore is an in-process implementation of store.Store used for
// local runs without Postgres and as the backing store in tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

type state struct {
	tasks    map[int64]*domain.Task
	notes    map[int64]*domain.Notification
	depts    map[int64]*domain.Department
	dtasks   map[int64]*domain.DepartmentTask
	execs    map[int64]*domain.Executor
	settings domain.Settings

	nextTask, nextNote, nextDept, nextDTask, nextExec int64
}

func newState() *state {
	return &state{
		tasks:    make(map[int64]*domain.Task),
		notes:    make(map[int64]*domain.Notification),
		depts:    make(map[int64]*domain.Department),
		dtasks:   make(map[int64]*domain.DepartmentTask),
		execs:    make(map[int64]*domain.Executor),
		settings: domain.DefaultSettings(),
	}
}

func (s *state) clone() *state {
	c := &state{
		tasks:     make(map[int64]*domain.Task, len(s.tasks)),
		notes:     make(map[int64]*domain.Notification, len(s.notes)),
		depts:     make(map[int64]*domain.Department, len(s.depts)),
		dtasks:    make(map[int64]*domain.DepartmentTask, len(s.dtasks)),
		execs:     make(map[int64]*domain.Executor, len(s.execs)),
		settings:  s.settings,
		nextTask:  s.nextTask,
		nextNote:  s.nextNote,
		nextDept:  s.nextDept,
		nextDTask: s.nextDTask,
		nextExec:  s.nextExec,
	}
	for id, t := range s.tasks {
		c.tasks[id] = cloneTask(t)
	}
	for id, n := range s.notes {
		c.notes[id] = cloneNote(n)
	}
	for id, d := range s.depts {
		dd := *d
		c.depts[id] = &dd
	}
	for id, t := range s.dtasks {
		c.dtasks[id] = cloneDeptTask(t)
	}
	for id, e := range s.execs {
		ee := *e
		c.execs[id] = &ee
	}
	return c
}

// Store keeps everything in maps guarded by one RWMutex. Transactions hold
// the write lock for their whole duration and work on a copy that replaces
// the live state on commit.
type Store struct {
	mu    *sync.RWMutex
	data  *state
	inTx  bool
	clock func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newState(), clock: time.Now}
}

// WithClock overrides the time source used for created/updated stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.clock = now
	return s
}

func (s *Store) Tasks() store.TaskRepository                 { return taskRepo{s} }
func (s *Store) Notifications() store.NotificationRepository { return noteRepo{s} }
func (s *Store) Departments() store.DepartmentRepository     { return deptRepo{s} }
func (s *Store) Executors() store.ExecutorRepository         { return execRepo{s} }
func (s *Store) Settings() store.SettingsRepository          { return settingsRepo{s} }

func (s *Store) Ping(context.Context) error { return nil }

// LockGeneration is a no-op: InTx already holds the store-wide write lock.
func (s *Store) LockGeneration(context.Context) error { return nil }

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{mu: &sync.RWMutex{}, data: s.data.clone(), inTx: true, clock: s.clock}
	if err := fn(view); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = view.data
	return nil
}

func (s *Store) NormalizeStatuses(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.data.tasks {
		canon := domain.NormalizeStatus(string(t.Status))
		if canon != t.Status {
			t.Status = canon
			n++
		}
	}
	return n, nil
}

func (s *Store) read(fn func(d *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// ── tasks ────────────────────────────────────────────────────────────────────

type taskRepo struct{ s *Store }

func (r taskRepo) List(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	var out []*domain.Task
	r.s.read(func(d *state) {
		for _, t := range d.tasks {
			if filter.Match(t) {
				out = append(out, cloneTask(t))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r taskRepo) Get(_ context.Context, id int64) (*domain.Task, error) {
	var out *domain.Task
	r.s.read(func(d *state) {
		if t, ok := d.tasks[id]; ok {
			out = cloneTask(t)
		}
	})
	if out == nil {
		return nil, &domain.TaskNotFoundError{TaskID: id}
	}
	return out, nil
}

func (r taskRepo) Create(_ context.Context, task *domain.Task) error {
	now := r.s.clock()
	return r.s.write(func(d *state) error {
		d.nextTask++
		task.ID = d.nextTask
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		task.UpdatedAt = now
		d.tasks[task.ID] = cloneTask(task)
		return nil
	})
}

func (r taskRepo) Update(_ context.Context, task *domain.Task) error {
	now := r.s.clock()
	return r.s.write(func(d *state) error {
		cur, ok := d.tasks[task.ID]
		if !ok {
			return &domain.TaskNotFoundError{TaskID: task.ID}
		}
		task.CreatedAt = cur.CreatedAt
		task.UpdatedAt = now
		d.tasks[task.ID] = cloneTask(task)
		return nil
	})
}

func (r taskRepo) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.tasks[id]; !ok {
			return &domain.TaskNotFoundError{TaskID: id}
		}
		delete(d.tasks, id)
		for nid, n := range d.notes {
			if n.TaskID == id {
				delete(d.notes, nid)
			}
		}
		return nil
	})
}

// ── notifications ────────────────────────────────────────────────────────────

type noteRepo struct{ s *Store }

func (r noteRepo) List(_ context.Context) ([]*domain.Notification, error) {
	return r.collect(func(*domain.Notification) bool { return true }), nil
}

func (r noteRepo) ListByTask(_ context.Context, taskID int64) ([]*domain.Notification, error) {
	return r.collect(func(n *domain.Notification) bool { return n.TaskID == taskID }), nil
}

func (r noteRepo) collect(keep func(*domain.Notification) bool) []*domain.Notification {
	var out []*domain.Notification
	r.s.read(func(d *state) {
		for _, n := range d.notes {
			if keep(n) {
				out = append(out, cloneNote(n))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r noteRepo) Get(_ context.Context, id int64) (*domain.Notification, error) {
	var out *domain.Notification
	r.s.read(func(d *state) {
		if n, ok := d.notes[id]; ok {
			out = cloneNote(n)
		}
	})
	if out == nil {
		return nil, &domain.NotificationNotFoundError{NotificationID: id}
	}
	return out, nil
}

func (r noteRepo) Create(_ context.Context, n *domain.Notification) error {
	now := r.s.clock()
	return r.s.write(func(d *state) error {
		if _, ok := d.tasks[n.TaskID]; !ok {
			return &domain.TaskNotFoundError{TaskID: n.TaskID}
		}
		d.nextNote++
		n.ID = d.nextNote
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		d.notes[n.ID] = cloneNote(n)
		return nil
	})
}

func (r noteRepo) UpdateMessage(_ context.Context, id int64, message string, due time.Time) error {
	return r.s.write(func(d *state) error {
		n, ok := d.notes[id]
		if !ok {
			return &domain.NotificationNotFoundError{NotificationID: id}
		}
		n.Message = message
		n.DueDate = due
		return nil
	})
}

func (r noteRepo) UpdateResolution(_ context.Context, in *domain.Notification) error {
	return r.s.write(func(d *state) error {
		n, ok := d.notes[in.ID]
		if !ok {
			return &domain.NotificationNotFoundError{NotificationID: in.ID}
		}
		n.Read = in.Read
		n.Acknowledged = in.Acknowledged
		n.ReportSent = in.ReportSent
		n.OutgoingNumber = in.OutgoingNumber
		n.OutgoingDate = copyTime(in.OutgoingDate)
		n.CompletedInWorkingOrder = in.CompletedInWorkingOrder
		n.AwaitingReport = in.AwaitingReport
		return nil
	})
}

func (r noteRepo) MarkAlerted(_ context.Context, id int64, at time.Time) error {
	return r.s.write(func(d *state) error {
		n, ok := d.notes[id]
		if !ok {
			return &domain.NotificationNotFoundError{NotificationID: id}
		}
		n.OSAlertSent = true
		n.LastOSAlertAt = &at
		return nil
	})
}

func (r noteRepo) Delete(_ context.Context, ids []int64) error {
	return r.s.write(func(d *state) error {
		for _, id := range ids {
			delete(d.notes, id)
		}
		return nil
	})
}

// ── departments ──────────────────────────────────────────────────────────────

type deptRepo struct{ s *Store }

func (r deptRepo) ListDepartments(_ context.Context) ([]*domain.Department, error) {
	var out []*domain.Department
	r.s.read(func(d *state) {
		for _, dep := range d.depts {
			c := *dep
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func (r deptRepo) CreateDepartment(_ context.Context, dep *domain.Department) error {
	return r.s.write(func(d *state) error {
		d.nextDept++
		dep.ID = d.nextDept
		c := *dep
		d.depts[dep.ID] = &c
		return nil
	})
}

func (r deptRepo) ListTasks(_ context.Context, filter store.DepartmentTaskFilter) ([]*domain.DepartmentTask, error) {
	var out []*domain.DepartmentTask
	r.s.read(func(d *state) {
		for _, t := range d.dtasks {
			if filter.Completed != nil && t.IsCompleted() != *filter.Completed {
				continue
			}
			out = append(out, cloneDeptTask(t))
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r deptRepo) GetTask(_ context.Context, id int64) (*domain.DepartmentTask, error) {
	var out *domain.DepartmentTask
	r.s.read(func(d *state) {
		if t, ok := d.dtasks[id]; ok {
			out = cloneDeptTask(t)
		}
	})
	if out == nil {
		return nil, &domain.DepartmentTaskNotFoundError{TaskID: id}
	}
	return out, nil
}

func (r deptRepo) CreateTask(_ context.Context, t *domain.DepartmentTask) error {
	now := r.s.clock()
	return r.s.write(func(d *state) error {
		for _, a := range t.Assignments {
			if _, ok := d.depts[a.DepartmentID]; !ok {
				return &domain.DepartmentNotFoundError{DepartmentID: a.DepartmentID}
			}
		}
		d.nextDTask++
		t.ID = d.nextDTask
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		d.dtasks[t.ID] = cloneDeptTask(t)
		return nil
	})
}

func (r deptRepo) UpdateTask(_ context.Context, t *domain.DepartmentTask) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.dtasks[t.ID]; !ok {
			return &domain.DepartmentTaskNotFoundError{TaskID: t.ID}
		}
		d.dtasks[t.ID] = cloneDeptTask(t)
		return nil
	})
}

// ── executors ────────────────────────────────────────────────────────────────

type execRepo struct{ s *Store }

func (r execRepo) List(_ context.Context) ([]*domain.Executor, error) {
	var out []*domain.Executor
	r.s.read(func(d *state) {
		for _, e := range d.execs {
			c := *e
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r execRepo) Get(_ context.Context, id int64) (*domain.Executor, error) {
	var out *domain.Executor
	r.s.read(func(d *state) {
		if e, ok := d.execs[id]; ok {
			c := *e
			out = &c
		}
	})
	if out == nil {
		return nil, &domain.ExecutorNotFoundError{ExecutorID: id}
	}
	return out, nil
}

func (r execRepo) Create(_ context.Context, e *domain.Executor) error {
	return r.s.write(func(d *state) error {
		d.nextExec++
		e.ID = d.nextExec
		c := *e
		d.execs[e.ID] = &c
		return nil
	})
}

func (r execRepo) Update(_ context.Context, e *domain.Executor) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.execs[e.ID]; !ok {
			return &domain.ExecutorNotFoundError{ExecutorID: e.ID}
		}
		c := *e
		d.execs[e.ID] = &c
		return nil
	})
}

func (r execRepo) Delete(_ context.Context, id int64) error {
	return r.s.write(func(d *state) error {
		if _, ok := d.execs[id]; !ok {
			return &domain.ExecutorNotFoundError{ExecutorID: id}
		}
		delete(d.execs, id)
		return nil
	})
}

// ── settings ─────────────────────────────────────────────────────────────────

type settingsRepo struct{ s *Store }

func (r settingsRepo) Load(_ context.Context) (domain.Settings, error) {
	var out domain.Settings
	r.s.read(func(d *state) { out = d.settings })
	return out, nil
}

func (r settingsRepo) Save(_ context.Context, st domain.Settings) error {
	return r.s.write(func(d *state) error {
		d.settings = st.WithDefaults()
		return nil
	})
}

// ── copies ───────────────────────────────────────────────────────────────────

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	c.CustomDates = append([]time.Time(nil), t.CustomDates...)
	c.Responses = append([]domain.IntermediateResponse(nil), t.Responses...)
	c.CompletedAt = copyTime(t.CompletedAt)
	return &c
}

func cloneNote(n *domain.Notification) *domain.Notification {
	c := *n
	c.OutgoingDate = copyTime(n.OutgoingDate)
	c.LastOSAlertAt = copyTime(n.LastOSAlertAt)
	return &c
}

func cloneDeptTask(t *domain.DepartmentTask) *domain.DepartmentTask {
	c := *t
	c.ForcedCompleteAt = copyTime(t.ForcedCompleteAt)
	c.Assignments = make([]domain.DepartmentAssignment, len(t.Assignments))
	for i, a := range t.Assignments {
		a.CompletedAt = copyTime(a.CompletedAt)
		c.Assignments[i] = a
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
