package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

// DepartmentRequest is the JSON body for POST /api/v1/departments.
type DepartmentRequest struct {
	ShortName string `json:"short_name"`
	FullName  string `json:"full_name"`
}

// DepartmentTaskRequest is the JSON body for POST /api/v1/department-tasks.
type DepartmentTaskRequest struct {
	Number        string            `json:"number"`
	Description   string            `json:"description"`
	Source        string            `json:"source"`
	Notes         string            `json:"notes"`
	Importance    domain.Importance `json:"importance"`
	SentAt        Date              `json:"sent_at"`
	DueDate       Date              `json:"due_date"`
	DepartmentIDs []int64           `json:"department_ids"`
}

// ListDepartments handles GET /api/v1/departments.
func (a *API) ListDepartments(w http.ResponseWriter, r *http.Request) {
	deps, err := a.store.Departments().ListDepartments(r.Context())
	if err != nil {
		a.writeFailure(w, r, err, "failed to list departments")
		return
	}
	if deps == nil {
		deps = []*domain.Department{}
	}
	writeJSON(w, http.StatusOK, deps)
}

// CreateDepartment handles POST /api/v1/departments.
func (a *API) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	dep := &domain.Department{ShortName: strings.TrimSpace(req.ShortName), FullName: strings.TrimSpace(req.FullName)}
	if dep.ShortName == "" {
		a.writeFailure(w, r, &domain.ValidationError{Field: "short_name", Reason: "must not be empty"}, "")
		return
	}
	if err := a.store.Departments().CreateDepartment(r.Context(), dep); err != nil {
		a.writeFailure(w, r, err, "failed to create department")
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

// ListDepartmentTasks handles GET /api/v1/department-tasks?completed=true|false.
func (a *API) ListDepartmentTasks(w http.ResponseWriter, r *http.Request) {
	var filter store.DepartmentTaskFilter
	if v := r.URL.Query().Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			a.writeFailure(w, r, &domain.ValidationError{Field: "completed", Reason: "must be true or false"}, "")
			return
		}
		filter.Completed = &b
	}
	tasks, err := a.store.Departments().ListTasks(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, r, err, "failed to list department tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.DepartmentTask{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateDepartmentTask handles POST /api/v1/department-tasks.
func (a *API) CreateDepartmentTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.create_department_task")
	defer span.End()

	var req DepartmentTaskRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}

	task := &domain.DepartmentTask{
		Number:      strings.TrimSpace(req.Number),
		Description: req.Description,
		Source:      req.Source,
		Notes:       req.Notes,
		Importance:  req.Importance,
		SentAt:      req.SentAt.At(a.location()),
		DueDate:     req.DueDate.At(a.location()),
	}
	if task.Importance == "" {
		task.Importance = domain.ImportanceStandard
	}
	if task.SentAt.IsZero() {
		task.SentAt = domain.StartOfDay(a.clock.Now())
	}
	for _, id := range req.DepartmentIDs {
		task.Assignments = append(task.Assignments, domain.DepartmentAssignment{DepartmentID: id})
	}
	if err := task.Validate(); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := a.store.Departments().CreateTask(ctx, task); err != nil {
		span.RecordError(err)
		a.writeFailure(w, r, err, "failed to create department task")
		return
	}

	a.logger.Info("department task created",
		slog.Int64("department_task_id", task.ID),
		slog.Int("departments", len(task.Assignments)),
	)
	writeJSON(w, http.StatusCreated, task)
}

// CompleteDepartment handles
// POST /api/v1/department-tasks/{id}/departments/{deptID}/complete.
func (a *API) CompleteDepartment(w http.ResponseWriter, r *http.Request) {
	deptID, err := pathID(r, "deptID")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	a.updateDepartmentTask(w, r, "complete", func(t *domain.DepartmentTask) error {
		return t.CompleteFor(deptID, a.clock.Now())
	})
}

// ForceComplete handles POST /api/v1/department-tasks/{id}/force-complete.
func (a *API) ForceComplete(w http.ResponseWriter, r *http.Request) {
	a.updateDepartmentTask(w, r, "force_complete", func(t *domain.DepartmentTask) error {
		t.ForceComplete(a.clock.Now())
		return nil
	})
}

func (a *API) updateDepartmentTask(w http.ResponseWriter, r *http.Request, action string, apply func(*domain.DepartmentTask) error) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.department_task."+action)
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}

	var task *domain.DepartmentTask
	err = a.store.InTx(ctx, func(tx store.Store) error {
		cur, err := tx.Departments().GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(cur); err != nil {
			return err
		}
		task = cur
		return tx.Departments().UpdateTask(ctx, cur)
	})
	if err != nil {
		span.RecordError(err)
		a.writeFailure(w, r, err, "failed to update department task")
		return
	}

	a.logger.Info("department task updated",
		slog.String("action", action),
		slog.Int64("department_task_id", id),
		slog.Bool("completed", task.IsCompleted()),
	)
	writeJSON(w, http.StatusOK, task)
}
