package domain

import "time"

// LeadStatus enumerates the pipeline states a lead can be in.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadSiteVisit   LeadStatus = "site_visit"
	LeadNegotiation LeadStatus = "negotiation"
	LeadClosedWon   LeadStatus = "closed_won"
	LeadClosedLost  LeadStatus = "closed_lost"
)

// Lead represents a single CRM lead within a workspace.
type Lead struct {
	ID             string         `json:"id" db:"id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	Name           string         `json:"name" db:"name"`
	Email          string         `json:"email" db:"email"`
	Phone          string         `json:"phone" db:"phone"`
	City           string         `json:"city" db:"city"`
	Source         string         `json:"source" db:"source"`
	Status         LeadStatus     `json:"status" db:"status"`
	PropertyType   []string       `json:"property_type" db:"property_type"`
	LeadScore      float64        `json:"lead_score" db:"lead_score"`
	Budget         float64        `json:"budget" db:"budget"`
	Attributes     map[string]any `json:"attributes" db:"attributes"`

	LastContactedAt *time.Time `json:"last_contacted_at" db:"last_contacted_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Record flattens the lead into the keyed form the segment evaluator
// consumes. Typed columns win over custom attributes on key collision.
func (l Lead) Record() map[string]any {
	rec := make(map[string]any, len(l.Attributes)+10)
	for k, v := range l.Attributes {
		rec[k] = v
	}
	rec["name"] = l.Name
	rec["email"] = l.Email
	rec["city"] = l.City
	rec["source"] = l.Source
	rec["status"] = string(l.Status)
	rec["property_type"] = l.PropertyType
	rec["lead_score"] = l.LeadScore
	rec["budget_range"] = l.Budget
	rec["created_at"] = l.CreatedAt
	if l.LastContactedAt != nil {
		rec["last_contacted_at"] = *l.LastContactedAt
	}
	return rec
}
