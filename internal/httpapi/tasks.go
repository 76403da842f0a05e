package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ramiqadoumi/go-control-tracker/internal/calendar"
	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/pkg/telemetry"
)

// Date accepts either YYYY-MM-DD or an RFC 3339 timestamp. A bare date has
// no zone of its own; At places it in the tracker's zone.
type Date struct {
	time.Time
	bare bool
}

// At returns the timestamp, reading a bare date as midnight in loc.
func (d Date) At(loc *time.Location) time.Time {
	if !d.bare || d.IsZero() {
		return d.Time
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		d.Time, d.bare = t, true
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	d.Time, d.bare = t, false
	return nil
}

// TaskRequest is the JSON body for POST /api/v1/tasks and PUT /api/v1/tasks/{id}.
type TaskRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	ControlNumber string                `json:"control_number"`
	Assignee      string                `json:"assignee"`
	Notes         string                `json:"notes"`
	Importance    domain.Importance     `json:"importance"`
	Urgency       domain.Urgency        `json:"urgency"`
	Recurrence    domain.RecurrenceType `json:"recurrence"`
	Status        domain.Status         `json:"status"`
	DueDate       Date                  `json:"due_date"`
	CustomDates   []Date                `json:"custom_dates"`
}

// applyTo copies the editable fields onto t. The audit log and timestamps
// are never taken from a request.
func (req TaskRequest) applyTo(t *domain.Task, loc *time.Location) {
	t.Title = strings.TrimSpace(req.Title)
	t.Description = req.Description
	t.ControlNumber = strings.TrimSpace(req.ControlNumber)
	t.Assignee = req.Assignee
	t.Notes = req.Notes
	t.Importance = req.Importance
	t.Urgency = req.Urgency
	t.Recurrence = domain.RecurrenceType(strings.ToUpper(string(req.Recurrence)))
	t.Status = req.Status
	t.DueDate = req.DueDate.At(loc)
	t.CustomDates = nil
	for _, d := range req.CustomDates {
		t.CustomDates = append(t.CustomDates, d.At(loc))
	}
	t.ApplyDefaults()
}

// TaskHistoryResponse is the GET /api/v1/tasks/{id}/history response body.
type TaskHistoryResponse struct {
	TaskID        int64                         `json:"task_id"`
	Responses     []domain.IntermediateResponse `json:"responses"`
	Notifications []*domain.Notification        `json:"notifications"`
}

// CreateTask handles POST /api/v1/tasks.
func (a *API) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.create_task")
	defer span.End()

	var req TaskRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "failed to create task")
		return
	}

	task := &domain.Task{}
	req.applyTo(task, a.location())
	if err := task.Validate(); err != nil {
		a.writeFailure(w, r, err, "failed to create task")
		return
	}
	if err := a.store.Tasks().Create(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		a.writeFailure(w, r, err, "failed to create task")
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID), attribute.String("task.recurrence", string(task.Recurrence)))
	telemetry.APITasksCreated.WithLabelValues(string(task.Recurrence)).Inc()
	a.logger.Info("task created",
		slog.Int64("task_id", task.ID),
		slog.String("recurrence", string(task.Recurrence)),
	)
	a.afterTaskWrite(ctx, task.ID)
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/v1/tasks?status=NEW,IN_PROGRESS.
func (a *API) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter store.TaskFilter
	for _, s := range strings.Split(r.URL.Query().Get("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			filter.Statuses = append(filter.Statuses, domain.NormalizeStatus(s))
		}
	}

	tasks, err := a.store.Tasks().List(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, r, err, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (a *API) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	task, err := a.store.Tasks().Get(r.Context(), id)
	if err != nil {
		a.writeFailure(w, r, err, "failed to retrieve task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /api/v1/tasks/{id}.
func (a *API) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.update_task")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	var req TaskRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "failed to update task")
		return
	}
	span.SetAttributes(attribute.Int64("task.id", id))

	var task *domain.Task
	err = a.store.InTx(ctx, func(tx store.Store) error {
		cur, err := tx.Tasks().Get(ctx, id)
		if err != nil {
			return err
		}
		req.applyTo(cur, a.location())
		if err := cur.Validate(); err != nil {
			return err
		}
		switch {
		case cur.IsFinished() && cur.CompletedAt == nil:
			now := a.clock.Now()
			cur.CompletedAt = &now
		case !cur.IsFinished():
			cur.CompletedAt = nil
		}
		task = cur
		return tx.Tasks().Update(ctx, cur)
	})
	if err != nil {
		span.RecordError(err)
		a.writeFailure(w, r, err, "failed to update task")
		return
	}

	a.afterTaskWrite(ctx, id)
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/v1/tasks/{id}. Its notifications go with it.
func (a *API) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.delete_task")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := a.store.Tasks().Delete(ctx, id); err != nil {
		a.writeFailure(w, r, err, "failed to delete task")
		return
	}

	a.logger.Info("task deleted", slog.Int64("task_id", id))
	a.invalidateCount(ctx)
	a.manager.TaskChanged(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

// CancelTask handles POST /api/v1/tasks/{id}/cancel. Cancelling twice is a
// no-op; a completed task cannot be cancelled.
func (a *API) CancelTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "httpapi.cancel_task")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}

	var task *domain.Task
	err = a.store.InTx(ctx, func(tx store.Store) error {
		cur, err := tx.Tasks().Get(ctx, id)
		if err != nil {
			return err
		}
		task = cur
		switch domain.NormalizeStatus(string(cur.Status)) {
		case domain.StatusCancelled:
			return nil
		case domain.StatusCompleted:
			return &domain.ValidationError{Field: "status", Reason: "task is already completed"}
		}
		now := a.clock.Now()
		cur.Status = domain.StatusCancelled
		cur.CompletedAt = &now
		return tx.Tasks().Update(ctx, cur)
	})
	if err != nil {
		a.writeFailure(w, r, err, "failed to cancel task")
		return
	}

	a.logger.Info("task cancelled", slog.Int64("task_id", id))
	a.afterTaskWrite(ctx, id)
	writeJSON(w, http.StatusOK, task)
}

// TaskHistory handles GET /api/v1/tasks/{id}/history.
func (a *API) TaskHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	task, err := a.store.Tasks().Get(r.Context(), id)
	if err != nil {
		a.writeFailure(w, r, err, "failed to retrieve task")
		return
	}
	notes, err := a.store.Notifications().ListByTask(r.Context(), id)
	if err != nil {
		a.writeFailure(w, r, err, "failed to retrieve notifications")
		return
	}

	resp := TaskHistoryResponse{TaskID: id, Responses: task.Responses, Notifications: notes}
	if resp.Responses == nil {
		resp.Responses = []domain.IntermediateResponse{}
	}
	if resp.Notifications == nil {
		resp.Notifications = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// TaskCalendar handles GET /api/v1/tasks/{id}/calendar.ics.
func (a *API) TaskCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	task, err := a.store.Tasks().Get(r.Context(), id)
	if err != nil {
		a.writeFailure(w, r, err, "failed to retrieve task")
		return
	}
	ics, err := calendar.TaskICS(task, a.clock.Now())
	if err != nil {
		a.writeFailure(w, r, err, "failed to export task")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="task-%d.ics"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ics))
}
