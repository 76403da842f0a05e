package httpapi

import (
	"net/http"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

// ExecutorRequest is the JSON body for POST and PUT /api/v1/executors.
type ExecutorRequest struct {
	Position string `json:"position"`
	FullName string `json:"full_name"`
}

// ExecutorResponse adds the display name lists show.
type ExecutorResponse struct {
	domain.Executor
	ShortName string `json:"short_name"`
}

func executorResponse(e *domain.Executor) ExecutorResponse {
	return ExecutorResponse{Executor: *e, ShortName: e.ShortName()}
}

// ListExecutors handles GET /api/v1/executors.
func (a *API) ListExecutors(w http.ResponseWriter, r *http.Request) {
	execs, err := a.store.Executors().List(r.Context())
	if err != nil {
		a.writeFailure(w, r, err, "failed to list executors")
		return
	}
	out := make([]ExecutorResponse, 0, len(execs))
	for _, e := range execs {
		out = append(out, executorResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateExecutor handles POST /api/v1/executors.
func (a *API) CreateExecutor(w http.ResponseWriter, r *http.Request) {
	var req ExecutorRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	e := &domain.Executor{Position: req.Position, FullName: req.FullName}
	e.Normalize()
	if err := e.Validate(); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := a.store.Executors().Create(r.Context(), e); err != nil {
		a.writeFailure(w, r, err, "failed to create executor")
		return
	}
	writeJSON(w, http.StatusCreated, executorResponse(e))
}

// UpdateExecutor handles PUT /api/v1/executors/{id}.
func (a *API) UpdateExecutor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	var req ExecutorRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	e := &domain.Executor{ID: id, Position: req.Position, FullName: req.FullName}
	e.Normalize()
	if err := e.Validate(); err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := a.store.Executors().Update(r.Context(), e); err != nil {
		a.writeFailure(w, r, err, "failed to update executor")
		return
	}
	writeJSON(w, http.StatusOK, executorResponse(e))
}

// DeleteExecutor handles DELETE /api/v1/executors/{id}.
func (a *API) DeleteExecutor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.writeFailure(w, r, err, "")
		return
	}
	if err := a.store.Executors().Delete(r.Context(), id); err != nil {
		a.writeFailure(w, r, err, "failed to delete executor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
