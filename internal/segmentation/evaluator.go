package segmentation

import (
	"strings"
	"time"
)

// Record is a keyed lead record as the evaluator sees it. Keys line up with
// registry field keys; unknown or missing keys fail closed.
type Record map[string]any

// Evaluator decides whether lead records match a segment's criteria. All
// evaluation is pure computation over already-resident data; missing or
// unparsable record fields make the affected criterion evaluate to false
// rather than erroring, so a segment never matches a record it cannot fully
// evaluate.
type Evaluator struct {
	registry *Registry
	now      func() time.Time
}

// NewEvaluator creates an evaluator against the given field registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry, now: time.Now}
}

// Matches reports whether a record satisfies every criterion of the segment.
// An empty criteria list is vacuously true, though persisted segments are
// never empty.
func (e *Evaluator) Matches(rec Record, seg Segment) bool {
	for _, c := range seg.Criteria {
		if !e.MatchesCriterion(rec, c) {
			return false
		}
	}
	return true
}

// EstimateSize counts records in the candidate pool matching the segment.
func (e *Evaluator) EstimateSize(seg Segment, pool []Record) int {
	count := 0
	for _, rec := range pool {
		if e.Matches(rec, seg) {
			count++
		}
	}
	return count
}

// MatchesCriterion evaluates a single criterion against a record.
func (e *Evaluator) MatchesCriterion(rec Record, c Criterion) bool {
	fd, ok := e.registry.GetField(c.Field)
	if !ok || !IsLegal(fd.ValueType, c.Operator) || c.Value == nil {
		return false
	}
	raw, present := rec[c.Field]
	if !present || raw == nil {
		return false
	}

	switch c.Operator {
	case OpEquals, OpNotEquals:
		matched, ok := e.equals(raw, c.Value, fd.ValueType)
		if !ok {
			return false
		}
		if c.Operator == OpNotEquals {
			return !matched
		}
		return matched

	case OpContains:
		scalar, okScalar := c.Value.(ScalarValue)
		text, okText := coerceString(raw)
		if !okScalar || !okText {
			return false
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(scalar.Value))

	case OpGreaterThan, OpLessThan:
		scalar, okScalar := c.Value.(ScalarValue)
		if !okScalar {
			return false
		}
		bound, okBound := coerceFloat(scalar.Value)
		actual, okActual := coerceFloat(raw)
		if !okBound || !okActual {
			return false
		}
		if c.Operator == OpGreaterThan {
			return actual > bound
		}
		return actual < bound

	case OpIn, OpNotIn:
		set, okSet := c.Value.(SetValue)
		if !okSet {
			return false
		}
		member, ok := e.memberOf(raw, set)
		if !ok {
			return false
		}
		if c.Operator == OpNotIn {
			return !member
		}
		return member

	case OpBetween:
		switch v := c.Value.(type) {
		case NumericRangeValue:
			actual, okActual := coerceFloat(raw)
			if !okActual {
				return false
			}
			return v.Min <= actual && actual <= v.Max
		case DateRangeValue:
			d, okDate := coerceDate(raw)
			if !okDate {
				return false
			}
			day := dayOf(d)
			return !day.Before(dayOf(v.Min)) && !day.After(dayOf(v.Max))
		}
		return false

	case OpBefore, OpAfter:
		scalar, okScalar := c.Value.(ScalarValue)
		if !okScalar {
			return false
		}
		bound, errBound := parseDate(scalar.Value)
		d, okDate := coerceDate(raw)
		if errBound != nil || !okDate {
			return false
		}
		if c.Operator == OpBefore {
			return dayOf(d).Before(dayOf(bound))
		}
		return dayOf(d).After(dayOf(bound))

	case OpInLastDays, OpInNextDays:
		window, okWindow := c.Value.(RelativeWindowValue)
		d, okDate := coerceDate(raw)
		if !okWindow || !okDate || window.Days <= 0 {
			return false
		}
		today := dayOf(e.now())
		day := dayOf(d)
		if c.Operator == OpInLastDays {
			// now - days <= record <= now, inclusive both ends.
			return !day.Before(today.AddDate(0, 0, -window.Days)) && !day.After(today)
		}
		// now <= record <= now + days, inclusive both ends.
		return !day.Before(today) && !day.After(today.AddDate(0, 0, window.Days))
	}

	return false
}

// equals applies strict, case-sensitive equality. Number and range fields
// compare numerically; everything else compares as text.
func (e *Evaluator) equals(raw any, value CriterionValue, vt ValueType) (matched, ok bool) {
	scalar, okScalar := value.(ScalarValue)
	if !okScalar {
		return false, false
	}
	if vt == TypeNumber || vt == TypeRange {
		bound, okBound := coerceFloat(scalar.Value)
		actual, okActual := coerceFloat(raw)
		if !okBound || !okActual {
			return false, false
		}
		return actual == bound, true
	}
	text, okText := coerceString(raw)
	if !okText {
		return false, false
	}
	return text == scalar.Value, true
}

// memberOf tests the record value for membership in the criterion set. A
// record field that is itself a list matches when any element is in the set.
func (e *Evaluator) memberOf(raw any, set SetValue) (member, ok bool) {
	in := func(s string) bool {
		for _, v := range set.Values {
			if v == s {
				return true
			}
		}
		return false
	}
	if values, isList := coerceStringSliceStrict(raw); isList {
		for _, v := range values {
			if in(v) {
				return true, true
			}
		}
		return false, true
	}
	text, okText := coerceString(raw)
	if !okText {
		return false, false
	}
	return in(text), true
}

// coerceStringSliceStrict converts list-shaped record values only; unlike
// coerceStringSlice it does not wrap a lone string.
func coerceStringSliceStrict(raw any) ([]string, bool) {
	switch raw.(type) {
	case []string, []any:
		return coerceStringSlice(raw)
	}
	return nil, false
}

func coerceDate(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		t, err := parseDate(v)
		return t, err == nil
	}
	return time.Time{}, false
}

// dayOf truncates to a whole UTC day so day-granular windows stay inclusive
// regardless of time-of-day noise on either side.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
