package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const eventsKeepAlive = 25 * time.Second

// Events handles GET /api/v1/events: a server-sent event stream with one
// "task" event per changed task ID.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// the server WriteTimeout would otherwise end every stream after 15s
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	changes, unsubscribe := a.events.SubscribeChan(32)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case id := <-changes:
			if _, err := fmt.Fprintf(w, "event: task\ndata: {\"task_id\":%d}\n\n", id); err != nil {
				a.logger.Debug("event stream closed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
