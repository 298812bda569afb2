package segmentation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ==========================================
// CRITERION
// ==========================================

// Criterion is one field+operator+value filter condition. Label is the cached
// human-readable description stamped at the moment the criterion was built; it
// is not recomputed on every access.
type Criterion struct {
	ID       string         `json:"id"`
	Field    string         `json:"field"`
	Operator Operator       `json:"operator"`
	Value    CriterionValue `json:"value"`
	Label    string         `json:"label"`
}

type criterionJSON struct {
	ID       string        `json:"id"`
	Field    string        `json:"field"`
	Operator Operator      `json:"operator"`
	Value    valueEnvelope `json:"value"`
	Label    string        `json:"label"`
}

// MarshalJSON encodes the tagged value union alongside the criterion fields.
func (c Criterion) MarshalJSON() ([]byte, error) {
	out := criterionJSON{
		ID:       c.ID,
		Field:    c.Field,
		Operator: c.Operator,
		Label:    c.Label,
	}
	if c.Value != nil {
		out.Value = encodeValue(c.Value)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a stored criterion, restoring the active value variant
// from its shape tag.
func (c *Criterion) UnmarshalJSON(data []byte) error {
	var in criterionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	value, err := decodeValue(in.Value)
	if err != nil {
		return fmt.Errorf("criterion %s: %w", in.ID, err)
	}
	c.ID = in.ID
	c.Field = in.Field
	c.Operator = in.Operator
	c.Value = value
	c.Label = in.Label
	return nil
}

// cloneCriterion deep-copies a criterion, optionally assigning a fresh id.
func cloneCriterion(c Criterion, freshID bool) Criterion {
	out := c
	if freshID {
		out.ID = uuid.NewString()
	}
	if sv, ok := c.Value.(SetValue); ok {
		values := make([]string, len(sv.Values))
		copy(values, sv.Values)
		out.Value = SetValue{Values: values}
	}
	return out
}

// ==========================================
// DRAFT EDITING
// ==========================================

// CriterionDraft is an in-progress criterion being composed in the builder.
// Field changes reset the operator and clear the value so a stale operator or
// value shape never survives; operator changes clear the value when the
// expected shape differs.
type CriterionDraft struct {
	registry *Registry
	id       string
	field    string
	operator Operator
	raw      any
}

// NewCriterionDraft starts a draft on the given field with that field type's
// default operator.
func NewCriterionDraft(registry *Registry, fieldKey string) (*CriterionDraft, error) {
	d := &CriterionDraft{registry: registry, id: uuid.NewString()}
	if err := d.SetField(fieldKey); err != nil {
		return nil, err
	}
	return d, nil
}

// Field returns the current field key.
func (d *CriterionDraft) Field() string { return d.field }

// Operator returns the current operator.
func (d *CriterionDraft) Operator() Operator { return d.operator }

// RawValue returns the currently staged raw value, nil after a field or
// incompatible operator change.
func (d *CriterionDraft) RawValue() any { return d.raw }

// SetField switches the draft to another field, resetting the operator to one
// legal for the new field's type and clearing the staged value.
func (d *CriterionDraft) SetField(fieldKey string) error {
	fd, ok := d.registry.GetField(fieldKey)
	if !ok {
		return &ValidationError{Field: fieldKey, Message: "unknown field"}
	}
	d.field = fd.Field
	d.operator = DefaultOperator(fd.ValueType)
	d.raw = nil
	return nil
}

// SetOperator switches the operator, rejecting operators illegal for the
// field's type. The staged value is cleared when the expected shape changes.
func (d *CriterionDraft) SetOperator(op Operator) error {
	fd, ok := d.registry.GetField(d.field)
	if !ok {
		return &ValidationError{Field: d.field, Message: "unknown field"}
	}
	if !IsLegal(fd.ValueType, op) {
		return &IllegalOperatorError{Operator: op, ValueType: fd.ValueType}
	}
	if ExpectedShape(fd.ValueType, op) != ExpectedShape(fd.ValueType, d.operator) {
		d.raw = nil
	}
	d.operator = op
	return nil
}

// SetValue stages a raw value payload. Validation happens at Build.
func (d *CriterionDraft) SetValue(raw any) {
	d.raw = raw
}

// Build normalizes the staged value and produces the persisted criterion with
// its label stamped. A validation failure leaves the draft intact.
func (d *CriterionDraft) Build() (Criterion, error) {
	fd, ok := d.registry.GetField(d.field)
	if !ok {
		return Criterion{}, &ValidationError{Field: d.field, Message: "unknown field"}
	}
	value, err := Normalize(d.raw, fd.ValueType, d.operator)
	if err != nil {
		if verr, isValidation := err.(*ValidationError); isValidation && verr.Field == "" {
			verr.Field = d.field
		}
		return Criterion{}, err
	}
	c := Criterion{
		ID:       d.id,
		Field:    d.field,
		Operator: d.operator,
		Value:    value,
	}
	c.Label = DescribeCriterion(c, d.registry)
	return c, nil
}
