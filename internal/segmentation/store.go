package segmentation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/audience-engine/internal/domain"
)

// Store provides database operations for segments and the lead pool. A
// segment row is owned by the organization that created it; every query is
// scoped by organization id. Criteria are stored as a JSONB document.
type Store struct {
	db *sql.DB
}

// NewStore creates a segmentation store on an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ==========================================
// SEGMENT OPERATIONS
// ==========================================

// CreateSegment inserts a segment produced by the lifecycle.
func (s *Store) CreateSegment(ctx context.Context, orgID string, seg *Segment) error {
	criteriaJSON, err := json.Marshal(seg.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	query := `
		INSERT INTO audience_segments (
			id, organization_id, name, description, color, is_active,
			criteria, lead_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		seg.ID, orgID, seg.Name, seg.Description, seg.Color, seg.IsActive,
		criteriaJSON, seg.LeadCount, seg.CreatedAt, seg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// GetSegment retrieves a segment by id. Returns (nil, nil) when the id does
// not resolve; callers referencing deleted segments must handle the miss.
func (s *Store) GetSegment(ctx context.Context, orgID, segmentID string) (*Segment, error) {
	query := `
		SELECT id, name, description, color, is_active, criteria, lead_count,
			created_at, updated_at
		FROM audience_segments
		WHERE id = $1 AND organization_id = $2
	`
	seg := &Segment{}
	var criteriaJSON []byte
	err := s.db.QueryRowContext(ctx, query, segmentID, orgID).Scan(
		&seg.ID, &seg.Name, &seg.Description, &seg.Color, &seg.IsActive,
		&criteriaJSON, &seg.LeadCount, &seg.CreatedAt, &seg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(criteriaJSON, &seg.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	return seg, nil
}

// ListSegments returns all segments for an organization, most recent first.
func (s *Store) ListSegments(ctx context.Context, orgID string) ([]Segment, error) {
	query := `
		SELECT id, name, description, color, is_active, criteria, lead_count,
			created_at, updated_at
		FROM audience_segments
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var seg Segment
		var criteriaJSON []byte
		if err := rows.Scan(&seg.ID, &seg.Name, &seg.Description, &seg.Color,
			&seg.IsActive, &criteriaJSON, &seg.LeadCount, &seg.CreatedAt, &seg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal(criteriaJSON, &seg.Criteria); err != nil {
			return nil, fmt.Errorf("unmarshal criteria for %s: %w", seg.ID, err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// UpdateSegment replaces the mutable columns of an existing segment.
func (s *Store) UpdateSegment(ctx context.Context, orgID string, seg *Segment) error {
	criteriaJSON, err := json.Marshal(seg.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	query := `
		UPDATE audience_segments
		SET name = $1, description = $2, color = $3, is_active = $4,
			criteria = $5, updated_at = $6
		WHERE id = $7 AND organization_id = $8
	`
	res, err := s.db.ExecContext(ctx, query,
		seg.Name, seg.Description, seg.Color, seg.IsActive,
		criteriaJSON, seg.UpdatedAt, seg.ID, orgID)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSegmentNotFound
	}
	return nil
}

// UpdateLeadCount stores a freshly computed count estimate.
func (s *Store) UpdateLeadCount(ctx context.Context, orgID, segmentID string, count int) error {
	query := `
		UPDATE audience_segments SET lead_count = $1
		WHERE id = $2 AND organization_id = $3
	`
	_, err := s.db.ExecContext(ctx, query, count, segmentID, orgID)
	return err
}

// DeleteSegment removes a segment. Deletion does not cascade: campaigns
// referencing the id must independently handle the subsequent lookup miss.
func (s *Store) DeleteSegment(ctx context.Context, orgID, segmentID string) error {
	query := `DELETE FROM audience_segments WHERE id = $1 AND organization_id = $2`
	res, err := s.db.ExecContext(ctx, query, segmentID, orgID)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSegmentNotFound
	}
	return nil
}

// ==========================================
// LEAD POOL
// ==========================================

// ListLeads loads the organization's lead pool for evaluation.
func (s *Store) ListLeads(ctx context.Context, orgID string) ([]domain.Lead, error) {
	query := `
		SELECT id, organization_id, name, email, phone, city, source, status,
			property_type, lead_score, budget, attributes,
			last_contacted_at, created_at, updated_at
		FROM leads
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		var lead domain.Lead
		var attributesJSON []byte
		var lastContacted sql.NullTime
		if err := rows.Scan(&lead.ID, &lead.OrganizationID, &lead.Name, &lead.Email,
			&lead.Phone, &lead.City, &lead.Source, &lead.Status,
			pq.Array(&lead.PropertyType), &lead.LeadScore, &lead.Budget, &attributesJSON,
			&lastContacted, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		if len(attributesJSON) > 0 {
			if err := json.Unmarshal(attributesJSON, &lead.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal attributes for %s: %w", lead.ID, err)
			}
		}
		if lastContacted.Valid {
			t := lastContacted.Time
			lead.LastContactedAt = &t
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
