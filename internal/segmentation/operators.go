package segmentation

// ==========================================
// OPERATORS
// ==========================================

// Operator represents a comparison operator applied between a field's actual
// value and a criterion's value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpBetween     Operator = "between"
	OpBefore      Operator = "before"
	OpAfter       Operator = "after"
	OpInLastDays  Operator = "in_last_days"
	OpInNextDays  Operator = "in_next_days"
)

// legalOperators is the authoritative operator-legality policy. Legality is a
// pure function of the field's value type; no operator is legal for every type.
var legalOperators = map[ValueType][]Operator{
	TypeText:        {OpEquals, OpNotEquals, OpContains},
	TypeNumber:      {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpBetween},
	TypeSelect:      {OpEquals, OpNotEquals},
	TypeMultiSelect: {OpEquals, OpNotEquals, OpIn, OpNotIn},
	TypeRange:       {OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpBetween},
	TypeDate:        {OpBefore, OpAfter, OpBetween, OpInLastDays, OpInNextDays},
	TypeDateRange:   {OpBefore, OpAfter, OpBetween, OpInLastDays, OpInNextDays},
}

// LegalOperators returns the set of operators legal for a value type, in
// stable presentation order.
func LegalOperators(vt ValueType) []Operator {
	ops := legalOperators[vt]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// IsLegal reports whether op may be applied to a field of the given type.
func IsLegal(vt ValueType, op Operator) bool {
	for _, o := range legalOperators[vt] {
		if o == op {
			return true
		}
	}
	return false
}

// DefaultOperator returns the operator a fresh criterion on a field of the
// given type starts with. Changing a draft's field resets its operator to
// this so a stale operator never survives a field change.
func DefaultOperator(vt ValueType) Operator {
	ops := legalOperators[vt]
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}

// ==========================================
// VALUE SHAPES
// ==========================================

// ValueShape identifies which variant of CriterionValue a (valueType,
// operator) pair expects.
type ValueShape string

const (
	ShapeScalar         ValueShape = "scalar"
	ShapeSet            ValueShape = "set"
	ShapeNumericRange   ValueShape = "numeric_range"
	ShapeDateRange      ValueShape = "date_range"
	ShapeRelativeWindow ValueShape = "relative_window"
)

// ExpectedShape returns the value shape a criterion must carry for the given
// field type and operator. The operator is assumed legal for the type.
func ExpectedShape(vt ValueType, op Operator) ValueShape {
	switch {
	case op == OpInLastDays || op == OpInNextDays:
		return ShapeRelativeWindow
	case op == OpBetween && (vt == TypeDate || vt == TypeDateRange):
		return ShapeDateRange
	case op == OpBetween && (vt == TypeNumber || vt == TypeRange):
		return ShapeNumericRange
	case (op == OpBefore || op == OpAfter) && (vt == TypeDate || vt == TypeDateRange):
		return ShapeScalar
	case vt == TypeSelect || vt == TypeMultiSelect:
		if op == OpIn || op == OpNotIn {
			return ShapeSet
		}
		return ShapeScalar
	default:
		return ShapeScalar
	}
}

// operatorPhrases maps operators to the phrasing used in criterion labels.
var operatorPhrases = map[Operator]string{
	OpEquals:      "is",
	OpNotEquals:   "is not",
	OpContains:    "contains",
	OpGreaterThan: "greater than",
	OpLessThan:    "less than",
	OpIn:          "is one of",
	OpNotIn:       "is not one of",
	OpBetween:     "between",
	OpBefore:      "before",
	OpAfter:       "after",
	OpInLastDays:  "in last",
	OpInNextDays:  "in next",
}

// OperatorPhrase returns the human-readable phrase for an operator.
func OperatorPhrase(op Operator) string {
	return operatorPhrases[op]
}
