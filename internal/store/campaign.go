package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// CampaignStore persists campaigns.
type CampaignStore struct {
	db *sql.DB
}

// NewCampaignStore creates a Postgres-backed campaign store.
func NewCampaignStore(db *sql.DB) *CampaignStore { return &CampaignStore{db: db} }

// Get loads a campaign with its message templates.
func (s *CampaignStore) Get(ctx context.Context, id uuid.UUID) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, channel, sending_account, from_identity,
		       COALESCE(subject_a, ''), COALESCE(body_a, ''),
		       COALESCE(subject_b, ''), COALESCE(body_b, ''),
		       daily_cap, status, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Channel, &c.SendingAccount, &c.FromIdentity,
		&c.TemplateA.Subject, &c.TemplateA.Body,
		&c.TemplateB.Subject, &c.TemplateB.Body,
		&c.DailyCap, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// SetStatus updates a campaign's status after the caller has checked the
// transition gates (domain.CanPause and friends).
func (s *CampaignStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ScheduledTodayCount returns how many queue items were created for a
// campaign today, so repeated scheduler runs respect the daily cap across
// invocations rather than per invocation.
func (s *CampaignStore) ScheduledTodayCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM queue_items
		WHERE campaign_id = $1 AND created_at >= date_trunc('day', NOW())
	`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count scheduled today: %w", err)
	}
	return n, nil
}

// ActiveSendingAccounts lists the distinct sending accounts of active
// campaigns. The standing poller iterates these when no explicit account
// is given.
func (s *CampaignStore) ActiveSendingAccounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT sending_account FROM campaigns WHERE status = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("list sending accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan sending account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
