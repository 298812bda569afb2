package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifecycleAt(t *testing.T, now time.Time) *Lifecycle {
	t.Helper()
	l := NewLifecycle(DefaultRegistry())
	l.now = func() time.Time { return now }
	return l
}

func validDraft() SegmentDraft {
	return SegmentDraft{
		Name:     "Hot Leads",
		Color:    "#ef4444",
		IsActive: true,
		Criteria: []Criterion{
			{Field: "lead_score", Operator: OpGreaterThan, Value: ScalarValue{Value: "70"}},
			{Field: "city", Operator: OpIn, Value: SetValue{Values: []string{"delhi", "mumbai"}}},
		},
	}
}

func TestLifecycleCreate(t *testing.T) {
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	l := lifecycleAt(t, now)

	seg, err := l.Create(validDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, seg.ID)
	assert.Equal(t, "Hot Leads", seg.Name)
	assert.True(t, seg.IsActive)
	assert.Equal(t, now, seg.CreatedAt)
	assert.Equal(t, now, seg.UpdatedAt)
	assert.Zero(t, seg.LeadCount)

	require.Len(t, seg.Criteria, 2)
	for _, c := range seg.Criteria {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.Label)
	}
	assert.Equal(t, "Lead Score greater than 70", seg.Criteria[0].Label)
	assert.Equal(t, "City is one of Delhi, Mumbai", seg.Criteria[1].Label)
}

func TestLifecycleCreate_RequiresName(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Name = ""
	_, err := l.Create(draft)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestLifecycleCreate_RequiresCriteria(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Criteria = nil
	_, err := l.Create(draft)
	assert.ErrorIs(t, err, ErrNoCriteria)
}

func TestLifecycleCreate_RejectsUnknownField(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Criteria = []Criterion{
		{Field: "no_such_field", Operator: OpEquals, Value: ScalarValue{Value: "x"}},
	}
	_, err := l.Create(draft)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no_such_field", verr.Field)
}

// Criteria arriving out of band, e.g. stored under an older schema, are
// re-checked against the legality table.
func TestLifecycleCreate_RejectsIllegalStoredOperator(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Criteria = []Criterion{
		{Field: "lead_score", Operator: OpContains, Value: ScalarValue{Value: "7"}},
	}
	_, err := l.Create(draft)
	var operr *IllegalOperatorError
	require.ErrorAs(t, err, &operr)
	assert.Equal(t, TypeNumber, operr.ValueType)
}

func TestLifecycleCreate_RejectsWrongValueShape(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Criteria = []Criterion{
		{Field: "lead_score", Operator: OpBetween, Value: ScalarValue{Value: "50"}},
	}
	_, err := l.Create(draft)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLifecycleCreate_PreservesSubmittedCriterionIDs(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	draft := validDraft()
	draft.Criteria[0].ID = "keep-me"
	seg, err := l.Create(draft)
	require.NoError(t, err)
	assert.Equal(t, "keep-me", seg.Criteria[0].ID)
	assert.NotEmpty(t, seg.Criteria[1].ID)
}

func TestLifecycleUpdate(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := lifecycleAt(t, created)
	seg, err := l.Create(validDraft())
	require.NoError(t, err)

	updatedAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return updatedAt }

	draft := validDraft()
	draft.Name = "Warm Leads"
	draft.IsActive = false
	updated, err := l.Update(seg, draft)
	require.NoError(t, err)

	assert.Equal(t, seg.ID, updated.ID)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, updatedAt, updated.UpdatedAt)
	assert.Equal(t, "Warm Leads", updated.Name)
	assert.False(t, updated.IsActive)
}

func TestLifecycleUpdate_RejectsEmptyCriteria(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	seg, err := l.Create(validDraft())
	require.NoError(t, err)

	_, err = l.Update(seg, SegmentDraft{Name: "x"})
	assert.ErrorIs(t, err, ErrNoCriteria)
}

func TestLifecycleDuplicate(t *testing.T) {
	l := lifecycleAt(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	source, err := l.Create(validDraft())
	require.NoError(t, err)
	source.LeadCount = 42

	dupAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return dupAt }
	dup := l.Duplicate(source)

	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, "Hot Leads (Copy)", dup.Name)
	assert.Equal(t, 42, dup.LeadCount)
	assert.Equal(t, dupAt, dup.CreatedAt)
	assert.Equal(t, dupAt, dup.UpdatedAt)

	require.Len(t, dup.Criteria, len(source.Criteria))
	for i, c := range dup.Criteria {
		assert.NotEqual(t, source.Criteria[i].ID, c.ID)
		assert.Equal(t, source.Criteria[i].Value, c.Value)
		assert.Equal(t, source.Criteria[i].Label, c.Label)
	}

	// The copy owns its set values.
	dup.Criteria[1].Value.(SetValue).Values[0] = "pune"
	assert.Equal(t, "delhi", source.Criteria[1].Value.(SetValue).Values[0])
}

func TestLifecycleFromTemplate(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	tpl := SegmentTemplate{
		ID:    "hot-leads",
		Name:  "Hot Leads",
		Color: "#ef4444",
		Criteria: []Criterion{
			{ID: "tpl-1", Field: "lead_score", Operator: OpGreaterThan, Value: ScalarValue{Value: "70"}},
		},
	}

	seg, err := l.FromTemplate(tpl)
	require.NoError(t, err)
	assert.NotEqual(t, tpl.ID, seg.ID)
	assert.Equal(t, "Hot Leads", seg.Name)
	assert.True(t, seg.IsActive)
	assert.Zero(t, seg.LeadCount)
	require.Len(t, seg.Criteria, 1)
	assert.NotEqual(t, "tpl-1", seg.Criteria[0].ID)
}

func TestLifecycleFromTemplate_InvalidTemplate(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	_, err := l.FromTemplate(SegmentTemplate{ID: "empty", Name: "Empty"})
	assert.ErrorIs(t, err, ErrNoCriteria)
}

func TestAdoptCriteria_RestampsLabels(t *testing.T) {
	l := NewLifecycle(DefaultRegistry())
	adopted, err := l.adoptCriteria([]Criterion{
		{Field: "city", Operator: OpIn,
			Value: SetValue{Values: []string{"delhi"}}, Label: "stale label"},
	})
	require.NoError(t, err)
	assert.Equal(t, "City is one of Delhi", adopted[0].Label)
}
