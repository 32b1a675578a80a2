package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// ProspectStore persists prospects and applies funnel transitions.
type ProspectStore struct {
	db *sql.DB
}

// NewProspectStore creates a Postgres-backed prospect store.
func NewProspectStore(db *sql.DB) *ProspectStore { return &ProspectStore{db: db} }

const prospectColumns = `id, campaign_id, COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(company_name, ''), COALESCE(title, ''), COALESCE(email, ''),
	COALESCE(linkedin_urn, ''), status, last_status_at`

func scanProspect(row interface{ Scan(...interface{}) error }) (*domain.Prospect, error) {
	p := &domain.Prospect{}
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.FirstName, &p.LastName,
		&p.CompanyName, &p.Title, &p.Email,
		&p.LinkedInURN, &p.Status, &p.LastStatusAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prospect: %w", err)
	}
	return p, nil
}

// Get loads a prospect by ID.
func (s *ProspectStore) Get(ctx context.Context, id uuid.UUID) (*domain.Prospect, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id)
	return scanProspect(row)
}

// PendingForCampaign returns the campaign's unscheduled prospects in a
// stable order. The scheduler relies on this ordering for deterministic
// variant assignment and send-time spacing.
func (s *ProspectStore) PendingForCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.Prospect, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prospectColumns+`
		FROM prospects
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY id
		LIMIT $2
	`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending prospects: %w", err)
	}
	defer rows.Close()

	var prospects []domain.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, *p)
	}
	return prospects, rows.Err()
}

// Advance moves a prospect to the next funnel status if the transition is
// legal. Returns false with no error when the transition is a no-op
// (already at or past the target, or absorbed in a terminal state);
// that is what makes duplicate webhook deliveries idempotent.
func (s *ProspectStore) Advance(ctx context.Context, id uuid.UUID, next domain.ProspectStatus) (bool, error) {
	var current domain.ProspectStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM prospects WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("load prospect status: %w", err)
	}

	if !current.CanAdvanceTo(next) {
		return false, nil
	}

	// Optimistic status check: if a concurrent writer advanced the prospect
	// first, no row matches and the transition is re-evaluated as a no-op.
	res, err := s.db.ExecContext(ctx, `
		UPDATE prospects
		SET status = $2, last_status_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, next, current)
	if err != nil {
		return false, fmt.Errorf("advance prospect: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
