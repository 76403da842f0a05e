package httpapi

import (
	"net/http"

	"github.com/ramiqadoumi/go-control-tracker/internal/calendar"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
)

// ArchiveResponse is the GET /api/v1/archive response body.
type ArchiveResponse struct {
	Tasks           []*domain.Task           `json:"tasks"`
	DepartmentTasks []*domain.DepartmentTask `json:"department_tasks"`
}

// CalendarResponse is the GET /api/v1/calendar response body.
type CalendarResponse struct {
	Month string         `json:"month"`
	Days  []calendar.Day `json:"days"`
}

// Archive handles GET /api/v1/archive: finished tasks and completed
// department tasks.
func (a *API) Archive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := a.store.Tasks().List(ctx, store.TaskFilter{
		Statuses: []domain.Status{domain.StatusCompleted, domain.StatusCancelled},
	})
	if err != nil {
		a.writeFailure(w, r, err, "failed to list archive")
		return
	}
	completed := true
	dtasks, err := a.store.Departments().ListTasks(ctx, store.DepartmentTaskFilter{Completed: &completed})
	if err != nil {
		a.writeFailure(w, r, err, "failed to list archive")
		return
	}

	resp := ArchiveResponse{Tasks: tasks, DepartmentTasks: dtasks}
	if resp.Tasks == nil {
		resp.Tasks = []*domain.Task{}
	}
	if resp.DepartmentTasks == nil {
		resp.DepartmentTasks = []*domain.DepartmentTask{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Calendar handles GET /api/v1/calendar?month=YYYY-MM.
func (a *API) Calendar(w http.ResponseWriter, r *http.Request) {
	month, err := calendar.ParseMonth(r.URL.Query().Get("month"), a.clock.Now())
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	tasks, err := a.store.Tasks().List(r.Context(), store.TaskFilter{})
	if err != nil {
		a.writeFailure(w, r, err, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, CalendarResponse{
		Month: month.Format("2006-01"),
		Days:  calendar.MonthView(tasks, month),
	})
}
