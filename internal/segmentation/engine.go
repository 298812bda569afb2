package segmentation

import (
	"context"
	"fmt"

	"github.com/ignite/audience-engine/internal/pkg/logger"
)

// Engine composes the segment lifecycle, store, count cache, and evaluator
// into the surface the API layer consumes.
type Engine struct {
	registry  *Registry
	store     *Store
	cache     *CountCache
	evaluator *Evaluator
	lifecycle *Lifecycle
}

// NewEngine creates an engine. The cache may be nil; counts are then always
// recomputed.
func NewEngine(registry *Registry, store *Store, cache *CountCache) *Engine {
	return &Engine{
		registry:  registry,
		store:     store,
		cache:     cache,
		evaluator: NewEvaluator(registry),
		lifecycle: NewLifecycle(registry),
	}
}

// Registry returns the field catalog the engine was built with.
func (e *Engine) Registry() *Registry { return e.registry }

// Evaluator returns the underlying evaluator for direct matching.
func (e *Engine) Evaluator() *Evaluator { return e.evaluator }

// ==========================================
// LIFECYCLE
// ==========================================

// CreateSegment validates a draft, persists the new segment, and returns it.
func (e *Engine) CreateSegment(ctx context.Context, orgID string, draft SegmentDraft) (*Segment, error) {
	seg, err := e.lifecycle.Create(draft)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateSegment(ctx, orgID, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// GetSegment loads a segment, mapping a store miss to ErrSegmentNotFound.
func (e *Engine) GetSegment(ctx context.Context, orgID, segmentID string) (*Segment, error) {
	seg, err := e.store.GetSegment(ctx, orgID, segmentID)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, ErrSegmentNotFound
	}
	return seg, nil
}

// ListSegments returns all segments for the organization.
func (e *Engine) ListSegments(ctx context.Context, orgID string) ([]Segment, error) {
	return e.store.ListSegments(ctx, orgID)
}

// UpdateSegment applies a draft to an existing segment and persists it. The
// cached count is invalidated since the criteria may have changed.
func (e *Engine) UpdateSegment(ctx context.Context, orgID, segmentID string, draft SegmentDraft) (*Segment, error) {
	existing, err := e.GetSegment(ctx, orgID, segmentID)
	if err != nil {
		return nil, err
	}
	updated, err := e.lifecycle.Update(*existing, draft)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateSegment(ctx, orgID, &updated); err != nil {
		return nil, err
	}
	e.invalidateCount(ctx, segmentID)
	return &updated, nil
}

// DuplicateSegment deep-copies an existing segment under a new id.
func (e *Engine) DuplicateSegment(ctx context.Context, orgID, segmentID string) (*Segment, error) {
	source, err := e.GetSegment(ctx, orgID, segmentID)
	if err != nil {
		return nil, err
	}
	dup := e.lifecycle.Duplicate(*source)
	if err := e.store.CreateSegment(ctx, orgID, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// CreateFromTemplate converts a catalog template into a persisted segment.
func (e *Engine) CreateFromTemplate(ctx context.Context, orgID string, tpl SegmentTemplate) (*Segment, error) {
	seg, err := e.lifecycle.FromTemplate(tpl)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateSegment(ctx, orgID, &seg); err != nil {
		return nil, err
	}
	return &seg, nil
}

// DeleteSegment removes a segment and drops its cached count. There is no
// cascade; campaign references to the id become dangling and their owners
// must degrade gracefully on the lookup miss.
func (e *Engine) DeleteSegment(ctx context.Context, orgID, segmentID string) error {
	if err := e.store.DeleteSegment(ctx, orgID, segmentID); err != nil {
		return err
	}
	e.invalidateCount(ctx, segmentID)
	return nil
}

// ==========================================
// COUNT ESTIMATES
// ==========================================

// RefreshCount re-evaluates the segment against the lead pool, updates the
// cache and the stored count, and returns the fresh estimate. Cache and
// stored-count update failures are non-fatal.
func (e *Engine) RefreshCount(ctx context.Context, orgID, segmentID string) (int, error) {
	seg, err := e.GetSegment(ctx, orgID, segmentID)
	if err != nil {
		return 0, err
	}
	leads, err := e.store.ListLeads(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list leads: %w", err)
	}
	pool := make([]Record, len(leads))
	for i, lead := range leads {
		pool[i] = Record(lead.Record())
	}
	count := e.evaluator.EstimateSize(*seg, pool)

	if e.cache != nil {
		if err := e.cache.Set(ctx, segmentID, count); err != nil {
			logger.Warn("segment count cache update failed", "segment_id", segmentID, "error", err)
		}
	}
	if err := e.store.UpdateLeadCount(ctx, orgID, segmentID, count); err != nil {
		logger.Warn("segment count store update failed", "segment_id", segmentID, "error", err)
	}
	return count, nil
}

// LeadCount returns the cached estimate when present, recomputing otherwise.
func (e *Engine) LeadCount(ctx context.Context, orgID, segmentID string) (int, error) {
	if e.cache != nil {
		if count, hit, err := e.cache.Get(ctx, segmentID); err == nil && hit {
			return count, nil
		} else if err != nil {
			logger.Warn("segment count cache read failed", "segment_id", segmentID, "error", err)
		}
	}
	return e.RefreshCount(ctx, orgID, segmentID)
}

// Preview estimates the audience size of an unsaved criteria list. The
// criteria are validated the same way Create validates them.
func (e *Engine) Preview(ctx context.Context, orgID string, criteria []Criterion) (int, error) {
	adopted, err := e.lifecycle.adoptCriteria(criteria)
	if err != nil {
		return 0, err
	}
	leads, err := e.store.ListLeads(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list leads: %w", err)
	}
	pool := make([]Record, len(leads))
	for i, lead := range leads {
		pool[i] = Record(lead.Record())
	}
	return e.evaluator.EstimateSize(Segment{Criteria: adopted}, pool), nil
}

func (e *Engine) invalidateCount(ctx context.Context, segmentID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, segmentID); err != nil {
		logger.Warn("segment count cache invalidation failed", "segment_id", segmentID, "error", err)
	}
}
