package segmentation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RejectsIllegalOperator(t *testing.T) {
	_, err := Normalize("50", TypeText, OpGreaterThan)
	var operr *IllegalOperatorError
	require.ErrorAs(t, err, &operr)
	assert.Equal(t, OpGreaterThan, operr.Operator)
	assert.Equal(t, TypeText, operr.ValueType)
}

func TestNormalize_Scalar(t *testing.T) {
	v, err := Normalize("  Rahul ", TypeText, OpEquals)
	require.NoError(t, err)
	assert.Equal(t, ScalarValue{Value: "Rahul"}, v)

	v, err = Normalize(70, TypeNumber, OpGreaterThan)
	require.NoError(t, err)
	assert.Equal(t, ScalarValue{Value: "70"}, v)

	_, err = Normalize("seventy", TypeNumber, OpGreaterThan)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = Normalize("   ", TypeText, OpEquals)
	require.ErrorAs(t, err, &verr)

	_, err = Normalize(nil, TypeText, OpEquals)
	require.ErrorAs(t, err, &verr)
}

func TestNormalize_DateScalarCanonicalized(t *testing.T) {
	v, err := Normalize("2024-01-15T10:30:00Z", TypeDate, OpBefore)
	require.NoError(t, err)
	assert.Equal(t, ScalarValue{Value: "2024-01-15"}, v)

	_, err = Normalize("not-a-date", TypeDate, OpAfter)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNormalize_Set(t *testing.T) {
	v, err := Normalize([]any{"delhi", "mumbai", "delhi", " "}, TypeMultiSelect, OpIn)
	require.NoError(t, err)
	assert.Equal(t, SetValue{Values: []string{"delhi", "mumbai"}}, v)

	// A single chosen value becomes a one-element set.
	v, err = Normalize("pune", TypeMultiSelect, OpNotIn)
	require.NoError(t, err)
	assert.Equal(t, SetValue{Values: []string{"pune"}}, v)

	var verr *ValidationError
	_, err = Normalize([]any{}, TypeMultiSelect, OpIn)
	require.ErrorAs(t, err, &verr)

	_, err = Normalize([]any{"", "  "}, TypeMultiSelect, OpIn)
	require.ErrorAs(t, err, &verr)
}

func TestNormalize_NumericRange(t *testing.T) {
	v, err := Normalize(map[string]any{"min": 30, "max": 70.5}, TypeNumber, OpBetween)
	require.NoError(t, err)
	assert.Equal(t, NumericRangeValue{Min: 30, Max: 70.5}, v)

	// String bounds coerce.
	v, err = Normalize(map[string]any{"min": "10", "max": "20"}, TypeRange, OpBetween)
	require.NoError(t, err)
	assert.Equal(t, NumericRangeValue{Min: 10, Max: 20}, v)

	// Inverted bounds are accepted; such a range simply matches nothing.
	v, err = Normalize(map[string]any{"min": 70, "max": 30}, TypeNumber, OpBetween)
	require.NoError(t, err)
	assert.Equal(t, NumericRangeValue{Min: 70, Max: 30}, v)

	var verr *ValidationError
	_, err = Normalize(map[string]any{"min": "low", "max": 70}, TypeNumber, OpBetween)
	require.ErrorAs(t, err, &verr)

	_, err = Normalize("30-70", TypeNumber, OpBetween)
	require.ErrorAs(t, err, &verr)
}

func TestNormalize_DateRange(t *testing.T) {
	v, err := Normalize(map[string]any{"min": "2024-01-01", "max": "2024-02-01"}, TypeDate, OpBetween)
	require.NoError(t, err)
	dr, ok := v.(DateRangeValue)
	require.True(t, ok)
	assert.True(t, dr.Min.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, dr.Max.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	var verr *ValidationError
	_, err = Normalize(map[string]any{"min": "soon", "max": "2024-02-01"}, TypeDate, OpBetween)
	require.ErrorAs(t, err, &verr)
}

func TestNormalize_RelativeWindow(t *testing.T) {
	v, err := Normalize(30, TypeDate, OpInLastDays)
	require.NoError(t, err)
	assert.Equal(t, RelativeWindowValue{Days: 30}, v)

	v, err = Normalize(map[string]any{"days": 7}, TypeDateRange, OpInNextDays)
	require.NoError(t, err)
	assert.Equal(t, RelativeWindowValue{Days: 7}, v)

	var verr *ValidationError
	for _, raw := range []any{0, -5, 2.5, "soon"} {
		_, err = Normalize(raw, TypeDate, OpInLastDays)
		require.ErrorAs(t, err, &verr, "raw %v", raw)
	}
}

// Every normalized value carries exactly the shape its (type, operator) pair
// expects.
func TestNormalize_ShapeMatchesExpected(t *testing.T) {
	samples := map[ValueShape]any{
		ShapeScalar:         "2024-01-15",
		ShapeSet:            []any{"a", "b"},
		ShapeNumericRange:   map[string]any{"min": 1, "max": 2},
		ShapeDateRange:      map[string]any{"min": "2024-01-01", "max": "2024-02-01"},
		ShapeRelativeWindow: 14,
	}
	for vt, ops := range legalOperators {
		for _, op := range ops {
			want := ExpectedShape(vt, op)
			raw := samples[want]
			if want == ShapeScalar && (vt == TypeNumber || vt == TypeRange) {
				raw = "42"
			}
			v, err := Normalize(raw, vt, op)
			require.NoError(t, err, "%s/%s", vt, op)
			assert.Equal(t, want, v.Shape(), "%s/%s", vt, op)
		}
	}
}

func TestValidateValue(t *testing.T) {
	require.NoError(t, validateValue(ScalarValue{Value: "70"}, TypeNumber, OpGreaterThan))

	var operr *IllegalOperatorError
	err := validateValue(ScalarValue{Value: "x"}, TypeNumber, OpContains)
	require.ErrorAs(t, err, &operr)

	var verr *ValidationError
	err = validateValue(nil, TypeNumber, OpGreaterThan)
	require.ErrorAs(t, err, &verr)

	// Wrong variant for the pair.
	err = validateValue(SetValue{Values: []string{"a"}}, TypeNumber, OpGreaterThan)
	require.ErrorAs(t, err, &verr)

	err = validateValue(ScalarValue{Value: "  "}, TypeText, OpEquals)
	require.ErrorAs(t, err, &verr)

	err = validateValue(SetValue{}, TypeMultiSelect, OpIn)
	require.ErrorAs(t, err, &verr)

	err = validateValue(RelativeWindowValue{Days: 0}, TypeDate, OpInLastDays)
	require.ErrorAs(t, err, &verr)
}

func TestValueEnvelopeRoundTrip(t *testing.T) {
	values := []CriterionValue{
		ScalarValue{Value: "delhi"},
		SetValue{Values: []string{"delhi", "mumbai"}},
		NumericRangeValue{Min: 30, Max: 70},
		RelativeWindowValue{Days: 30},
	}
	for _, v := range values {
		data, err := json.Marshal(encodeValue(v))
		require.NoError(t, err)
		var env valueEnvelope
		require.NoError(t, json.Unmarshal(data, &env))
		got, err := decodeValue(env)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	// Dates round-trip at day granularity.
	dr := DateRangeValue{
		Min: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := decodeValue(encodeValue(dr))
	require.NoError(t, err)
	gotDR, ok := got.(DateRangeValue)
	require.True(t, ok)
	assert.True(t, gotDR.Min.Equal(dr.Min))
	assert.True(t, gotDR.Max.Equal(dr.Max))
}

func TestDecodeValue_UnknownShape(t *testing.T) {
	_, err := decodeValue(valueEnvelope{Shape: "blob"})
	require.Error(t, err)

	_, err = decodeValue(valueEnvelope{Shape: ShapeNumericRange})
	require.Error(t, err)
}

func TestValidationError_IncludesField(t *testing.T) {
	err := error(&ValidationError{Field: "lead_score", Message: "not a number"})
	assert.Contains(t, err.Error(), "lead_score")

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
