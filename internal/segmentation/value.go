package segmentation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ==========================================
// ERRORS
// ==========================================

// ValidationError reports a malformed or missing criterion value. It blocks
// persisting the owning criterion but is never raised on evaluation paths.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid value: %s", e.Message)
}

// IllegalOperatorError reports an operator outside the legal set for a field's
// value type. Operator choices derived from LegalOperators can never trigger
// it; it guards against out-of-band data such as older stored schemas.
type IllegalOperatorError struct {
	Operator  Operator
	ValueType ValueType
}

func (e *IllegalOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not legal for %s fields", e.Operator, e.ValueType)
}

// ==========================================
// CRITERION VALUE (tagged union)
// ==========================================

// CriterionValue is the value payload of a criterion. Exactly one variant is
// active, determined jointly by the field's value type and the operator.
type CriterionValue interface {
	Shape() ValueShape
	isCriterionValue()
}

// ScalarValue holds a single string or numeric value. Numeric and date
// scalars are kept in canonical text form and parsed where compared.
type ScalarValue struct {
	Value string
}

// SetValue holds an ordered set of unique option values.
type SetValue struct {
	Values []string
}

// NumericRangeValue holds inclusive numeric bounds. min <= max is not
// enforced at construction; an inverted range simply matches nothing.
type NumericRangeValue struct {
	Min float64
	Max float64
}

// DateRangeValue holds inclusive date bounds.
type DateRangeValue struct {
	Min time.Time
	Max time.Time
}

// RelativeWindowValue holds a day count for in_last_days/in_next_days.
type RelativeWindowValue struct {
	Days int
}

func (ScalarValue) Shape() ValueShape         { return ShapeScalar }
func (SetValue) Shape() ValueShape            { return ShapeSet }
func (NumericRangeValue) Shape() ValueShape   { return ShapeNumericRange }
func (DateRangeValue) Shape() ValueShape      { return ShapeDateRange }
func (RelativeWindowValue) Shape() ValueShape { return ShapeRelativeWindow }

func (ScalarValue) isCriterionValue()         {}
func (SetValue) isCriterionValue()            {}
func (NumericRangeValue) isCriterionValue()   {}
func (DateRangeValue) isCriterionValue()      {}
func (RelativeWindowValue) isCriterionValue() {}

// ==========================================
// NORMALIZATION
// ==========================================

// Normalize validates and converts a raw value payload into the canonical
// CriterionValue for the given (valueType, operator) pair. Illegal operators
// are rejected with *IllegalOperatorError, malformed payloads with
// *ValidationError.
func Normalize(raw any, vt ValueType, op Operator) (CriterionValue, error) {
	if !IsLegal(vt, op) {
		return nil, &IllegalOperatorError{Operator: op, ValueType: vt}
	}

	switch ExpectedShape(vt, op) {
	case ShapeScalar:
		return normalizeScalar(raw, vt, op)
	case ShapeSet:
		return normalizeSet(raw)
	case ShapeNumericRange:
		return normalizeNumericRange(raw)
	case ShapeDateRange:
		return normalizeDateRange(raw)
	case ShapeRelativeWindow:
		return normalizeRelativeWindow(raw)
	}
	return nil, &ValidationError{Message: "unknown value shape"}
}

func normalizeScalar(raw any, vt ValueType, op Operator) (CriterionValue, error) {
	s, ok := coerceString(raw)
	if !ok {
		return nil, &ValidationError{Message: "expected a single value"}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ValidationError{Message: "value must not be empty"}
	}

	switch {
	case vt == TypeNumber || vt == TypeRange:
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("%q is not a number", s)}
		}
	case (vt == TypeDate || vt == TypeDateRange) && (op == OpBefore || op == OpAfter):
		t, err := parseDate(s)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("%q is not an ISO date", s)}
		}
		s = t.Format(dateLayout)
	}
	return ScalarValue{Value: s}, nil
}

func normalizeSet(raw any) (CriterionValue, error) {
	values, ok := coerceStringSlice(raw)
	if !ok {
		return nil, &ValidationError{Message: "expected a list of values"}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, &ValidationError{Message: "at least one value is required"}
	}
	return SetValue{Values: out}, nil
}

func normalizeNumericRange(raw any) (CriterionValue, error) {
	if v, ok := raw.(NumericRangeValue); ok {
		return v, nil
	}
	m, ok := coerceMap(raw)
	if !ok {
		return nil, &ValidationError{Message: "expected min and max bounds"}
	}
	min, okMin := coerceFloat(m["min"])
	max, okMax := coerceFloat(m["max"])
	if !okMin || !okMax {
		return nil, &ValidationError{Message: "range bounds must be numeric"}
	}
	return NumericRangeValue{Min: min, Max: max}, nil
}

func normalizeDateRange(raw any) (CriterionValue, error) {
	if v, ok := raw.(DateRangeValue); ok {
		return v, nil
	}
	m, ok := coerceMap(raw)
	if !ok {
		return nil, &ValidationError{Message: "expected min and max dates"}
	}
	minStr, okMin := coerceString(m["min"])
	maxStr, okMax := coerceString(m["max"])
	if !okMin || !okMax {
		return nil, &ValidationError{Message: "date bounds are required"}
	}
	min, errMin := parseDate(minStr)
	max, errMax := parseDate(maxStr)
	if errMin != nil || errMax != nil {
		return nil, &ValidationError{Message: "date bounds must be ISO dates"}
	}
	return DateRangeValue{Min: min, Max: max}, nil
}

func normalizeRelativeWindow(raw any) (CriterionValue, error) {
	if v, ok := raw.(RelativeWindowValue); ok {
		if v.Days <= 0 {
			return nil, &ValidationError{Message: "days must be greater than zero"}
		}
		return v, nil
	}
	days, ok := coerceFloat(raw)
	if !ok {
		if m, isMap := coerceMap(raw); isMap {
			days, ok = coerceFloat(m["days"])
		}
	}
	if !ok {
		return nil, &ValidationError{Message: "expected a day count"}
	}
	if days != float64(int(days)) || int(days) <= 0 {
		return nil, &ValidationError{Message: "days must be a positive whole number"}
	}
	return RelativeWindowValue{Days: int(days)}, nil
}

// validateValue re-checks an already-constructed value against the shape and
// constraints its (valueType, operator) pair demands. Used when stored
// criteria re-enter the system.
func validateValue(v CriterionValue, vt ValueType, op Operator) error {
	if !IsLegal(vt, op) {
		return &IllegalOperatorError{Operator: op, ValueType: vt}
	}
	if v == nil {
		return &ValidationError{Message: "value is required"}
	}
	if want := ExpectedShape(vt, op); v.Shape() != want {
		return &ValidationError{Message: fmt.Sprintf("expected %s value, got %s", want, v.Shape())}
	}
	switch val := v.(type) {
	case ScalarValue:
		if strings.TrimSpace(val.Value) == "" {
			return &ValidationError{Message: "value must not be empty"}
		}
	case SetValue:
		if len(val.Values) == 0 {
			return &ValidationError{Message: "at least one value is required"}
		}
	case RelativeWindowValue:
		if val.Days <= 0 {
			return &ValidationError{Message: "days must be greater than zero"}
		}
	}
	return nil
}

// ==========================================
// JSON ENCODING
// ==========================================

const dateLayout = "2006-01-02"

var dateParseLayouts = []string{
	time.RFC3339,
	dateLayout,
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateParseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// valueEnvelope is the stored JSON form of a CriterionValue. The shape tag
// selects the active variant on decode.
type valueEnvelope struct {
	Shape  ValueShape `json:"shape"`
	Scalar string     `json:"scalar,omitempty"`
	Set    []string   `json:"set,omitempty"`
	Min    *float64   `json:"min,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	From   string     `json:"from,omitempty"`
	To     string     `json:"to,omitempty"`
	Days   int        `json:"days,omitempty"`
}

func encodeValue(v CriterionValue) valueEnvelope {
	switch val := v.(type) {
	case ScalarValue:
		return valueEnvelope{Shape: ShapeScalar, Scalar: val.Value}
	case SetValue:
		return valueEnvelope{Shape: ShapeSet, Set: val.Values}
	case NumericRangeValue:
		min, max := val.Min, val.Max
		return valueEnvelope{Shape: ShapeNumericRange, Min: &min, Max: &max}
	case DateRangeValue:
		return valueEnvelope{
			Shape: ShapeDateRange,
			From:  val.Min.Format(dateLayout),
			To:    val.Max.Format(dateLayout),
		}
	case RelativeWindowValue:
		return valueEnvelope{Shape: ShapeRelativeWindow, Days: val.Days}
	}
	return valueEnvelope{}
}

func decodeValue(env valueEnvelope) (CriterionValue, error) {
	switch env.Shape {
	case ShapeScalar:
		return ScalarValue{Value: env.Scalar}, nil
	case ShapeSet:
		return SetValue{Values: env.Set}, nil
	case ShapeNumericRange:
		if env.Min == nil || env.Max == nil {
			return nil, fmt.Errorf("numeric range missing bounds")
		}
		return NumericRangeValue{Min: *env.Min, Max: *env.Max}, nil
	case ShapeDateRange:
		min, errMin := parseDate(env.From)
		max, errMax := parseDate(env.To)
		if errMin != nil {
			return nil, errMin
		}
		if errMax != nil {
			return nil, errMax
		}
		return DateRangeValue{Min: min, Max: max}, nil
	case ShapeRelativeWindow:
		return RelativeWindowValue{Days: env.Days}, nil
	}
	return nil, fmt.Errorf("unknown value shape %q", env.Shape)
}

// ==========================================
// COERCION HELPERS
// ==========================================

func coerceString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case time.Time:
		return v.Format(dateLayout), true
	}
	return "", false
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func coerceStringSlice(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := coerceString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		// A single chosen value is represented as a one-element set.
		return []string{v}, true
	}
	return nil, false
}

func coerceMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}
