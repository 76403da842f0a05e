package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ramiqadoumi/go-control-tracker/internal/notify"
	redisstore "github.com/ramiqadoumi/go-control-tracker/internal/redis"
)

// ReportSentRequest is the JSON body for POST /api/v1/notifications/{id}/report-sent.
type ReportSentRequest struct {
	OutgoingNumber string `json:"outgoing_number"`
	OutgoingDate   *Date  `json:"outgoing_date,omitempty"`
}

// CountResponse is the GET /api/v1/notifications/count response body.
type CountResponse struct {
	Count int `json:"count"`
}

// ListNotifications handles GET /api/v1/notifications?view=active|awaiting|all.
func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	view, err := notify.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	notes, err := a.manager.Notifications(r.Context(), view)
	if err != nil {
		a.writeFailure(w, r, err, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// NotificationCount handles GET /api/v1/notifications/count. The cached
// value is served when present; otherwise the count is computed and cached.
func (a *API) NotificationCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if a.counts != nil {
		n, err := a.counts.Get(ctx)
		if err == nil {
			writeJSON(w, http.StatusOK, CountResponse{Count: n})
			return
		}
		if !errors.Is(err, redisstore.ErrCacheMiss) {
			a.logger.Warn("read count cache", slog.String("error", err.Error()))
		}
	}

	n, err := a.manager.UnprocessedCount(ctx)
	if err != nil {
		a.writeFailure(w, r, err, "failed to count notifications")
		return
	}
	if a.counts != nil {
		if err := a.counts.Set(ctx, n); err != nil {
			a.logger.Debug("write count cache", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// Acknowledge handles POST /api/v1/notifications/{id}/acknowledge.
func (a *API) Acknowledge(w http.ResponseWriter, r *http.Request) {
	a.resolve(w, r, a.manager.MarkAcknowledged)
}

// WorkingOrder handles POST /api/v1/notifications/{id}/working-order.
func (a *API) WorkingOrder(w http.ResponseWriter, r *http.Request) {
	a.resolve(w, r, a.manager.MarkCompletedInWorkingOrder)
}

// AwaitingReport handles POST /api/v1/notifications/{id}/awaiting-report.
func (a *API) AwaitingReport(w http.ResponseWriter, r *http.Request) {
	a.resolve(w, r, a.manager.MarkAwaitingReport)
}

// ReportSent handles POST /api/v1/notifications/{id}/report-sent.
func (a *API) ReportSent(w http.ResponseWriter, r *http.Request) {
	var req ReportSentRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	a.resolve(w, r, func(ctx context.Context, id int64) error {
		if req.OutgoingDate == nil || req.OutgoingDate.IsZero() {
			return a.manager.MarkReportSent(ctx, id, req.OutgoingNumber, nil)
		}
		date := req.OutgoingDate.At(a.location())
		return a.manager.MarkReportSent(ctx, id, req.OutgoingNumber, &date)
	})
}

// resolve runs one resolution and answers with the notification as stored
// afterwards. A kind that does not accept the action leaves it unchanged.
func (a *API) resolve(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) error) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := apply(ctx, id); err != nil {
		a.writeFailure(w, r, err, "failed to resolve notification")
		return
	}
	a.invalidateCount(ctx)

	n, err := a.store.Notifications().Get(ctx, id)
	if err != nil {
		a.writeFailure(w, r, err, "failed to retrieve notification")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Generate handles POST /api/v1/notifications/generate.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	res, err := a.manager.GenerateNotifications(r.Context())
	if err != nil {
		a.writeFailure(w, r, err, "failed to generate notifications")
		return
	}
	a.invalidateCount(r.Context())
	writeJSON(w, http.StatusOK, res)
}
