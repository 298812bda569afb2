// Package segmentation models audience segments as a conjunction of typed
// filter criteria (field + operator + value), renders human-readable
// descriptions of them, and evaluates which lead records match.
package segmentation

import "fmt"

// ==========================================
// VALUE TYPES
// ==========================================

// ValueType represents the declared data shape of a segmentable field.
type ValueType string

const (
	TypeText        ValueType = "text"
	TypeNumber      ValueType = "number"
	TypeSelect      ValueType = "select"
	TypeMultiSelect ValueType = "multiselect"
	TypeRange       ValueType = "range"
	TypeDate        ValueType = "date"
	TypeDateRange   ValueType = "daterange"
)

// ==========================================
// FIELD REGISTRY
// ==========================================

// FieldOption is one selectable value for a select/multiselect field.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDescriptor identifies one segmentable lead attribute.
type FieldDescriptor struct {
	Field       string        `json:"field"`
	Label       string        `json:"label"`
	ValueType   ValueType     `json:"value_type"`
	Options     []FieldOption `json:"options,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
}

// OptionLabel resolves an option value to its display label, falling back to
// the raw value when no option matches.
func (f FieldDescriptor) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// Registry is the static catalog of segmentable fields. It is read-only after
// construction; inject alternate registries in tests instead of mutating.
type Registry struct {
	fields []FieldDescriptor
	byKey  map[string]int
}

// NewRegistry builds a registry from an ordered field catalog. Field keys must
// be unique, and select/multiselect fields must carry at least one option.
func NewRegistry(fields []FieldDescriptor) (*Registry, error) {
	r := &Registry{
		fields: make([]FieldDescriptor, len(fields)),
		byKey:  make(map[string]int, len(fields)),
	}
	copy(r.fields, fields)
	for i, f := range r.fields {
		if f.Field == "" {
			return nil, fmt.Errorf("field %d: empty field key", i)
		}
		if _, dup := r.byKey[f.Field]; dup {
			return nil, fmt.Errorf("duplicate field key %q", f.Field)
		}
		switch f.ValueType {
		case TypeText, TypeNumber, TypeRange, TypeDate, TypeDateRange:
		case TypeSelect, TypeMultiSelect:
			if len(f.Options) == 0 {
				return nil, fmt.Errorf("field %q: %s fields require options", f.Field, f.ValueType)
			}
		default:
			return nil, fmt.Errorf("field %q: unknown value type %q", f.Field, f.ValueType)
		}
		r.byKey[f.Field] = i
	}
	return r, nil
}

// ListFields returns the catalog in declaration order.
func (r *Registry) ListFields() []FieldDescriptor {
	out := make([]FieldDescriptor, len(r.fields))
	copy(out, r.fields)
	return out
}

// GetField looks up a descriptor by field key.
func (r *Registry) GetField(key string) (FieldDescriptor, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return FieldDescriptor{}, false
	}
	return r.fields[i], true
}

// DefaultRegistry returns the standard lead field catalog.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultLeadFields())
	if err != nil {
		// The default catalog is static; a construction failure is a bug.
		panic(err)
	}
	return r
}

func defaultLeadFields() []FieldDescriptor {
	return []FieldDescriptor{
		{Field: "name", Label: "Name", ValueType: TypeText, Placeholder: "Enter lead name"},
		{Field: "email", Label: "Email", ValueType: TypeText, Placeholder: "Enter email"},
		{Field: "city", Label: "City", ValueType: TypeMultiSelect, Options: []FieldOption{
			{Value: "delhi", Label: "Delhi"},
			{Value: "mumbai", Label: "Mumbai"},
			{Value: "bangalore", Label: "Bangalore"},
			{Value: "pune", Label: "Pune"},
			{Value: "hyderabad", Label: "Hyderabad"},
			{Value: "chennai", Label: "Chennai"},
		}},
		{Field: "source", Label: "Lead Source", ValueType: TypeSelect, Options: []FieldOption{
			{Value: "website", Label: "Website"},
			{Value: "facebook", Label: "Facebook"},
			{Value: "google_ads", Label: "Google Ads"},
			{Value: "referral", Label: "Referral"},
			{Value: "walk_in", Label: "Walk-in"},
		}},
		{Field: "status", Label: "Status", ValueType: TypeSelect, Options: []FieldOption{
			{Value: "new", Label: "New"},
			{Value: "contacted", Label: "Contacted"},
			{Value: "qualified", Label: "Qualified"},
			{Value: "site_visit", Label: "Site Visit"},
			{Value: "negotiation", Label: "Negotiation"},
			{Value: "closed_won", Label: "Closed Won"},
			{Value: "closed_lost", Label: "Closed Lost"},
		}},
		{Field: "property_type", Label: "Property Type", ValueType: TypeMultiSelect, Options: []FieldOption{
			{Value: "apartment", Label: "Apartment"},
			{Value: "villa", Label: "Villa"},
			{Value: "plot", Label: "Plot"},
			{Value: "commercial", Label: "Commercial"},
		}},
		{Field: "budget_range", Label: "Budget", ValueType: TypeRange, Placeholder: "Enter budget"},
		{Field: "lead_score", Label: "Lead Score", ValueType: TypeNumber, Placeholder: "0-100"},
		{Field: "created_at", Label: "Created", ValueType: TypeDate},
		{Field: "last_contacted_at", Label: "Last Contacted", ValueType: TypeDate},
		{Field: "follow_up_window", Label: "Follow-up Window", ValueType: TypeDateRange},
	}
}
