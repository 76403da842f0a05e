// Package httpapi is the REST surface of the tracker: task maintenance,
// notification resolution, archive, calendar and department tasks.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
	"github.com/ramiqadoumi/go-control-tracker/internal/notify"
	"github.com/ramiqadoumi/go-control-tracker/internal/store"
	"github.com/ramiqadoumi/go-control-tracker/pkg/clock"
)

// CountCache holds the unprocessed-notification count between passes.
// internal/redis.CountCache satisfies it.
type CountCache interface {
	Get(ctx context.Context) (int, error)
	Set(ctx context.Context, count int) error
	Invalidate(ctx context.Context) error
}

// API handles HTTP requests for the tracker.
type API struct {
	store   store.Store
	manager *notify.Manager
	events  *notify.Broadcaster
	counts  CountCache
	clock   clock.Clock
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an API.
type Option func(*API)

func WithClock(c clock.Clock) Option          { return func(a *API) { a.clock = c } }
func WithLogger(l *slog.Logger) Option        { return func(a *API) { a.logger = l } }
func WithCountCache(c CountCache) Option      { return func(a *API) { a.counts = c } }
func WithEvents(b *notify.Broadcaster) Option { return func(a *API) { a.events = b } }

// New creates the API over s and m.
func New(s store.Store, m *notify.Manager, opts ...Option) *API {
	a := &API{
		store:   s,
		manager: m,
		clock:   clock.Real{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("httpapi"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// location is the zone due days are compared in.
func (a *API) location() *time.Location { return a.clock.Now().Location() }

// Healthz handles GET /healthz.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Readyz handles GET /readyz and checks the store.
func (a *API) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// afterTaskWrite regenerates notifications for the new task state and tells
// the observers. Failures are logged; the write itself already succeeded.
func (a *API) afterTaskWrite(ctx context.Context, taskID int64) {
	if _, err := a.manager.GenerateNotifications(ctx); err != nil {
		a.logger.Warn("refresh notifications after task write",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()),
		)
	}
	a.invalidateCount(ctx)
	a.manager.TaskChanged(ctx, taskID)
}

func (a *API) invalidateCount(ctx context.Context) {
	if a.counts == nil {
		return
	}
	if err := a.counts.Invalidate(ctx); err != nil {
		a.logger.Debug("invalidate count cache", slog.String("error", err.Error()))
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Reason: "invalid JSON"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeFailure maps a domain error to its status code. Anything unexpected
// is logged and answered with msg.
func (a *API) writeFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var (
		taskNF     *domain.TaskNotFoundError
		noteNF     *domain.NotificationNotFoundError
		deptNF     *domain.DepartmentNotFoundError
		deptTaskNF *domain.DepartmentTaskNotFoundError
		execNF     *domain.ExecutorNotFoundError
		resolved   *domain.NotificationAlreadyResolvedError
		finished   *domain.TaskFinishedError
		invalid    *domain.ValidationError
		down       *domain.StoreUnavailableError
	)
	switch {
	case errors.As(err, &taskNF):
		writeError(w, http.StatusNotFound, taskNF.Error())
	case errors.As(err, &noteNF):
		writeError(w, http.StatusNotFound, noteNF.Error())
	case errors.As(err, &deptTaskNF):
		writeError(w, http.StatusNotFound, deptTaskNF.Error())
	case errors.As(err, &deptNF):
		writeError(w, http.StatusNotFound, deptNF.Error())
	case errors.As(err, &execNF):
		writeError(w, http.StatusNotFound, execNF.Error())
	case errors.As(err, &resolved):
		writeError(w, http.StatusConflict, resolved.Error())
	case errors.As(err, &finished):
		writeError(w, http.StatusConflict, finished.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &down):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		a.logger.Error(msg,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, msg)
	}
}
