// Package api exposes the segmentation engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/audience-engine/internal/segmentation"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	engine    *segmentation.Engine
	templates []segmentation.SegmentTemplate
}

// NewHandlers creates the handler set.
func NewHandlers(engine *segmentation.Engine, templates []segmentation.SegmentTemplate) *Handlers {
	return &Handlers{engine: engine, templates: templates}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// orgID resolves the tenant for a request. Segments are exclusively owned by
// the workspace that created them.
func orgID(r *http.Request) string {
	if org := r.Header.Get("X-Organization-ID"); org != "" {
		return org
	}
	return "default"
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondEngineError maps engine errors to HTTP statuses: draft/structural
// problems are client errors, a missing segment is 404, the rest are 500.
func respondEngineError(w http.ResponseWriter, err error) {
	var verr *segmentation.ValidationError
	var operr *segmentation.IllegalOperatorError
	switch {
	case errors.Is(err, segmentation.ErrSegmentNotFound):
		respondError(w, http.StatusNotFound, "segment not found")
	case errors.Is(err, segmentation.ErrEmptyName),
		errors.Is(err, segmentation.ErrNoCriteria),
		errors.As(err, &verr),
		errors.As(err, &operr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
