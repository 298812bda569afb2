package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/audience-engine/internal/pkg/logger"
	"github.com/ignite/audience-engine/internal/segmentation"
)

// criterionRequest is the builder-form criterion payload: the value is the
// raw shape the user composed (a scalar, a list, {min,max}, or {days}),
// normalized server-side.
type criterionRequest struct {
	ID       string                `json:"id,omitempty"`
	Field    string                `json:"field"`
	Operator segmentation.Operator `json:"operator"`
	Value    any                   `json:"value"`
}

type segmentRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	IsActive    bool               `json:"is_active"`
	Criteria    []criterionRequest `json:"criteria"`
}

type previewRequest struct {
	Criteria []criterionRequest `json:"criteria"`
}

type segmentResponse struct {
	segmentation.Segment
	Descriptions []string `json:"descriptions"`
}

func (h *Handlers) segmentResponse(seg segmentation.Segment) segmentResponse {
	return segmentResponse{
		Segment:      seg,
		Descriptions: segmentation.DescribeSegment(seg, h.engine.Registry()),
	}
}

// buildCriteria runs each request criterion through the draft builder so the
// operator-legality and value-shape rules apply uniformly.
func (h *Handlers) buildCriteria(reqs []criterionRequest) ([]segmentation.Criterion, error) {
	criteria := make([]segmentation.Criterion, 0, len(reqs))
	for i, cr := range reqs {
		draft, err := segmentation.NewCriterionDraft(h.engine.Registry(), cr.Field)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i+1, err)
		}
		if cr.Operator != "" {
			if err := draft.SetOperator(cr.Operator); err != nil {
				return nil, fmt.Errorf("criterion %d: %w", i+1, err)
			}
		}
		draft.SetValue(cr.Value)
		c, err := draft.Build()
		if err != nil {
			return nil, fmt.Errorf("criterion %d: %w", i+1, err)
		}
		if cr.ID != "" {
			c.ID = cr.ID
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

// decodeDraft parses a segment request body, responding on failure. The bool
// reports whether the caller should proceed.
func (h *Handlers) decodeDraft(w http.ResponseWriter, r *http.Request) (segmentation.SegmentDraft, bool) {
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return segmentation.SegmentDraft{}, false
	}
	criteria, err := h.buildCriteria(req.Criteria)
	if err != nil {
		respondEngineError(w, err)
		return segmentation.SegmentDraft{}, false
	}
	return segmentation.SegmentDraft{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		IsActive:    req.IsActive,
		Criteria:    criteria,
	}, true
}

// ==========================================
// METADATA
// ==========================================

// ListFields returns the segmentable field catalog for the builder UI.
func (h *Handlers) ListFields(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Registry().ListFields())
}

// ListFieldOperators returns the legal operators for one field, with the
// value shape each expects.
func (h *Handlers) ListFieldOperators(w http.ResponseWriter, r *http.Request) {
	fieldKey := chi.URLParam(r, "field")
	fd, ok := h.engine.Registry().GetField(fieldKey)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown field")
		return
	}

	type operatorInfo struct {
		Operator segmentation.Operator   `json:"operator"`
		Phrase   string                  `json:"phrase"`
		Shape    segmentation.ValueShape `json:"shape"`
	}
	ops := segmentation.LegalOperators(fd.ValueType)
	out := make([]operatorInfo, len(ops))
	for i, op := range ops {
		out[i] = operatorInfo{
			Operator: op,
			Phrase:   segmentation.OperatorPhrase(op),
			Shape:    segmentation.ExpectedShape(fd.ValueType, op),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// ==========================================
// SEGMENT CRUD
// ==========================================

// ListSegments returns all segments for the caller's organization.
func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.engine.ListSegments(r.Context(), orgID(r))
	if err != nil {
		logger.Error("list segments failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list segments")
		return
	}
	if segments == nil {
		segments = []segmentation.Segment{}
	}
	respondJSON(w, http.StatusOK, segments)
}

// CreateSegment validates and persists a new segment.
func (h *Handlers) CreateSegment(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	seg, err := h.engine.CreateSegment(r.Context(), orgID(r), draft)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.segmentResponse(*seg))
}

// GetSegment returns one segment with its rendered criterion descriptions.
func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := h.engine.GetSegment(r.Context(), orgID(r), chi.URLParam(r, "segmentID"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.segmentResponse(*seg))
}

// UpdateSegment replaces a segment's mutable fields.
func (h *Handlers) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	draft, ok := h.decodeDraft(w, r)
	if !ok {
		return
	}
	seg, err := h.engine.UpdateSegment(r.Context(), orgID(r), chi.URLParam(r, "segmentID"), draft)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.segmentResponse(*seg))
}

// DeleteSegment removes a segment. References held elsewhere become dangling
// and must be handled by their owners on the next lookup.
func (h *Handlers) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSegment(r.Context(), orgID(r), chi.URLParam(r, "segmentID")); err != nil {
		respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateSegment copies a segment under a new id.
func (h *Handlers) DuplicateSegment(w http.ResponseWriter, r *http.Request) {
	seg, err := h.engine.DuplicateSegment(r.Context(), orgID(r), chi.URLParam(r, "segmentID"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, h.segmentResponse(*seg))
}

// ==========================================
// COUNTS & PREVIEW
// ==========================================

// GetSegmentCount returns the cached lead-count estimate, recomputing on a
// cache miss.
func (h *Handlers) GetSegmentCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.LeadCount(r.Context(), orgID(r), chi.URLParam(r, "segmentID"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"lead_count": count})
}

// RefreshSegmentCount forces a re-evaluation of the segment over the lead
// pool.
func (h *Handlers) RefreshSegmentCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.RefreshCount(r.Context(), orgID(r), chi.URLParam(r, "segmentID"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"lead_count": count})
}

// PreviewSegment estimates the audience of an unsaved criteria list.
func (h *Handlers) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	criteria, err := h.buildCriteria(req.Criteria)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	count, err := h.engine.Preview(r.Context(), orgID(r), criteria)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"estimated_count": count})
}

// ==========================================
// TEMPLATES
// ==========================================

// ListTemplates returns the read-only template catalog.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.templates)
}

// CreateFromTemplate converts a catalog template into a persisted segment.
func (h *Handlers) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateID")
	for _, tpl := range h.templates {
		if tpl.ID != templateID {
			continue
		}
		seg, err := h.engine.CreateFromTemplate(r.Context(), orgID(r), tpl)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, h.segmentResponse(*seg))
		return
	}
	respondError(w, http.StatusNotFound, "template not found")
}
