package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// MaxRequestBody bounds JSON request bodies.
const MaxRequestBody = 1 << 20

// NewRouter wires every route of the API. allowedOrigins feeds CORS; an
// empty list allows any origin.
func NewRouter(a *API, logger *slog.Logger, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(MaxBodySize(MaxRequestBody))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Readyz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", a.ListTasks)
			r.Post("/", a.CreateTask)
			r.Get("/{id}", a.GetTask)
			r.Put("/{id}", a.UpdateTask)
			r.Delete("/{id}", a.DeleteTask)
			r.Post("/{id}/cancel", a.CancelTask)
			r.Get("/{id}/history", a.TaskHistory)
			r.Get("/{id}/calendar.ics", a.TaskCalendar)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", a.ListNotifications)
			r.Get("/count", a.NotificationCount)
			r.Post("/generate", a.Generate)
			r.Post("/{id}/acknowledge", a.Acknowledge)
			r.Post("/{id}/report-sent", a.ReportSent)
			r.Post("/{id}/working-order", a.WorkingOrder)
			r.Post("/{id}/awaiting-report", a.AwaitingReport)
		})

		r.Get("/calendar", a.Calendar)
		r.Get("/archive", a.Archive)

		r.Get("/departments", a.ListDepartments)
		r.Post("/departments", a.CreateDepartment)

		r.Route("/executors", func(r chi.Router) {
			r.Get("/", a.ListExecutors)
			r.Post("/", a.CreateExecutor)
			r.Put("/{id}", a.UpdateExecutor)
			r.Delete("/{id}", a.DeleteExecutor)
		})

		r.Route("/department-tasks", func(r chi.Router) {
			r.Get("/", a.ListDepartmentTasks)
			r.Post("/", a.CreateDepartmentTask)
			r.Post("/{id}/departments/{deptID}/complete", a.CompleteDepartment)
			r.Post("/{id}/force-complete", a.ForceComplete)
		})

		if a.events != nil {
			r.Get("/events", a.Events)
		}
	})

	return r
}
