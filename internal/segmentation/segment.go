package segmentation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ==========================================
// SEGMENT AGGREGATE
// ==========================================

// Segment is a named, persisted set of criteria (AND-combined) used to select
// an audience. LeadCount is a cached estimate, never guaranteed fresh.
type Segment struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Color       string      `json:"color,omitempty"`
	IsActive    bool        `json:"is_active"`
	Criteria    []Criterion `json:"criteria"`
	LeadCount   int         `json:"lead_count"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SegmentDraft carries the mutable fields submitted by the builder.
type SegmentDraft struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Color       string      `json:"color,omitempty"`
	IsActive    bool        `json:"is_active"`
	Criteria    []Criterion `json:"criteria"`
}

// SegmentTemplate is read-only seed data for quickly creating a segment.
// Criterion ids inside a template are not required to be stable; conversion
// assigns fresh ones.
type SegmentTemplate struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Color       string      `json:"color,omitempty"`
	Criteria    []Criterion `json:"criteria"`
}

var (
	// ErrEmptyName rejects drafts without a segment name.
	ErrEmptyName = errors.New("segment name is required")
	// ErrNoCriteria rejects persisting a segment with an empty criteria list.
	// An empty list is permitted only as a transient in-progress draft.
	ErrNoCriteria = errors.New("segment requires at least one criterion")
	// ErrSegmentNotFound reports a segment id that no longer resolves, e.g. a
	// dangling campaign reference after deletion.
	ErrSegmentNotFound = errors.New("segment not found")
)

// Lifecycle produces new or updated segment values from drafts. Every
// operation is a pure transformation; persisting the result is the caller's
// concern.
type Lifecycle struct {
	registry *Registry
	now      func() time.Time
}

// NewLifecycle creates a lifecycle bound to a field registry.
func NewLifecycle(registry *Registry) *Lifecycle {
	return &Lifecycle{registry: registry, now: time.Now}
}

// Create validates a draft and mints a new segment with fresh id and
// timestamps. Criteria labels are restamped and criterion ids assigned where
// missing.
func (l *Lifecycle) Create(draft SegmentDraft) (Segment, error) {
	criteria, err := l.adoptCriteria(draft.Criteria)
	if err != nil {
		return Segment{}, err
	}
	if err := l.validateName(draft.Name); err != nil {
		return Segment{}, err
	}
	now := l.now()
	return Segment{
		ID:          uuid.NewString(),
		Name:        draft.Name,
		Description: draft.Description,
		Color:       draft.Color,
		IsActive:    draft.IsActive,
		Criteria:    criteria,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Update replaces the mutable fields of an existing segment, preserving id
// and createdAt and bumping updatedAt.
func (l *Lifecycle) Update(existing Segment, draft SegmentDraft) (Segment, error) {
	criteria, err := l.adoptCriteria(draft.Criteria)
	if err != nil {
		return Segment{}, err
	}
	if err := l.validateName(draft.Name); err != nil {
		return Segment{}, err
	}
	updated := existing
	updated.Name = draft.Name
	updated.Description = draft.Description
	updated.Color = draft.Color
	updated.IsActive = draft.IsActive
	updated.Criteria = criteria
	updated.UpdatedAt = l.now()
	return updated, nil
}

// Duplicate deep-copies a segment under a new id with fresh criterion ids and
// timestamps. The name gains a " (Copy)" suffix.
func (l *Lifecycle) Duplicate(source Segment) Segment {
	now := l.now()
	criteria := make([]Criterion, len(source.Criteria))
	for i, c := range source.Criteria {
		criteria[i] = cloneCriterion(c, true)
	}
	return Segment{
		ID:          uuid.NewString(),
		Name:        source.Name + " (Copy)",
		Description: source.Description,
		Color:       source.Color,
		IsActive:    source.IsActive,
		Criteria:    criteria,
		LeadCount:   source.LeadCount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FromTemplate converts a read-only template into a new segment with fresh
// ids. The lead count starts at zero until the first estimate runs.
func (l *Lifecycle) FromTemplate(tpl SegmentTemplate) (Segment, error) {
	criteria := make([]Criterion, len(tpl.Criteria))
	for i, c := range tpl.Criteria {
		criteria[i] = cloneCriterion(c, true)
	}
	seg, err := l.Create(SegmentDraft{
		Name:        tpl.Name,
		Description: tpl.Description,
		Color:       tpl.Color,
		IsActive:    true,
		Criteria:    criteria,
	})
	if err != nil {
		return Segment{}, err
	}
	seg.LeadCount = 0
	return seg, nil
}

func (l *Lifecycle) validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return nil
}

// adoptCriteria re-validates submitted criteria (operator legality and value
// shape, even for data stored under an older schema), assigns missing ids,
// and restamps labels.
func (l *Lifecycle) adoptCriteria(criteria []Criterion) ([]Criterion, error) {
	if len(criteria) == 0 {
		return nil, ErrNoCriteria
	}
	out := make([]Criterion, len(criteria))
	for i, c := range criteria {
		fd, ok := l.registry.GetField(c.Field)
		if !ok {
			return nil, &ValidationError{Field: c.Field, Message: "unknown field"}
		}
		if err := validateValue(c.Value, fd.ValueType, c.Operator); err != nil {
			if verr, isValidation := err.(*ValidationError); isValidation && verr.Field == "" {
				verr.Field = c.Field
			}
			return nil, err
		}
		adopted := cloneCriterion(c, c.ID == "")
		adopted.Label = DescribeCriterion(adopted, l.registry)
		out[i] = adopted
	}
	return out, nil
}
