package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeCriterion(t *testing.T) {
	reg := DefaultRegistry()
	tests := []struct {
		name      string
		criterion Criterion
		want      string
	}{
		{
			name: "set resolves option labels",
			criterion: Criterion{Field: "city", Operator: OpIn,
				Value: SetValue{Values: []string{"delhi", "mumbai"}}},
			want: "City is one of Delhi, Mumbai",
		},
		{
			name: "numeric scalar",
			criterion: Criterion{Field: "lead_score", Operator: OpGreaterThan,
				Value: ScalarValue{Value: "70"}},
			want: "Lead Score greater than 70",
		},
		{
			name: "numeric range",
			criterion: Criterion{Field: "lead_score", Operator: OpBetween,
				Value: NumericRangeValue{Min: 30, Max: 70}},
			want: "Lead Score between 30-70",
		},
		{
			name: "relative window",
			criterion: Criterion{Field: "created_at", Operator: OpInLastDays,
				Value: RelativeWindowValue{Days: 30}},
			want: "Created in last 30 days",
		},
		{
			name: "date scalar renders display form",
			criterion: Criterion{Field: "created_at", Operator: OpBefore,
				Value: ScalarValue{Value: "2024-01-15"}},
			want: "Created before Jan 15, 2024",
		},
		{
			name: "date range",
			criterion: Criterion{Field: "created_at", Operator: OpBetween,
				Value: DateRangeValue{
					Min: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
					Max: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				}},
			want: "Created between Jan 1, 2024 - Feb 1, 2024",
		},
		{
			name: "select scalar resolves option label",
			criterion: Criterion{Field: "status", Operator: OpNotEquals,
				Value: ScalarValue{Value: "closed_lost"}},
			want: "Status is not Closed Lost",
		},
		{
			name: "unknown option falls back to raw value",
			criterion: Criterion{Field: "city", Operator: OpIn,
				Value: SetValue{Values: []string{"gurgaon"}}},
			want: "City is one of gurgaon",
		},
		{
			name: "unknown field falls back to key",
			criterion: Criterion{Field: "custom_tag", Operator: OpEquals,
				Value: ScalarValue{Value: "vip"}},
			want: "custom_tag is vip",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeCriterion(tt.criterion, reg))
		})
	}
}

func TestDescribeSegment_NumbersPositions(t *testing.T) {
	reg := DefaultRegistry()
	seg := Segment{Criteria: []Criterion{
		{Field: "lead_score", Operator: OpGreaterThan, Value: ScalarValue{Value: "70"}},
		{Field: "city", Operator: OpIn, Value: SetValue{Values: []string{"delhi"}}},
	}}
	got := DescribeSegment(seg, reg)
	require.Len(t, got, 2)
	assert.Equal(t, "1. Lead Score greater than 70", got[0])
	assert.Equal(t, "2. City is one of Delhi", got[1])
}

func TestDescribeSegment_Empty(t *testing.T) {
	assert.Empty(t, DescribeSegment(Segment{}, DefaultRegistry()))
}
