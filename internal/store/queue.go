package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// staleClaimAfter is how long a claimed-but-unresolved item stays invisible
// before the next dispatcher run may reclaim it. Covers a dispatcher that
// crashed between claiming and recording an outcome.
const staleClaimAfter = "10 minutes"

// QueueStore persists send-tasks. Items are created by the scheduler and
// mutated only by the dispatcher and the webhook ingestor.
type QueueStore struct {
	db *sql.DB
}

// NewQueueStore creates a Postgres-backed queue store.
func NewQueueStore(db *sql.DB) *QueueStore { return &QueueStore{db: db} }

// InsertPending inserts a pending queue item, or does nothing when the
// prospect already has a pending item for the same campaign+channel.
// Returns true when a row was created.
func (s *QueueStore) InsertPending(ctx context.Context, item *domain.QueueItem) (bool, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_items (
			id, campaign_id, prospect_id, channel, variant,
			subject, body, scheduled_for, status, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, 'pending', NOW())
		ON CONFLICT DO NOTHING
	`, item.ID, item.CampaignID, item.ProspectID, item.Channel, item.Variant,
		item.Subject, item.Body, item.ScheduledFor)
	if err != nil {
		return false, fmt.Errorf("insert queue item: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// DueItem is a claimed queue item joined with the prospect fields needed
// for rendering and the campaign's sending identity.
type DueItem struct {
	Item         domain.QueueItem
	Prospect     domain.Prospect
	FromIdentity string
}

// ClaimDue claims up to limit due pending items for one sending account.
// Claiming stamps locked_at so a crashed run's items become reclaimable
// after the stale window; status stays pending until an outcome is
// recorded, which is what makes a re-run against the same due set safe.
func (s *QueueStore) ClaimDue(ctx context.Context, workerID, account string, limit int) ([]DueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH claimed AS (
			UPDATE queue_items
			SET locked_at = NOW(), worker_id = $1
			WHERE id IN (
				SELECT q.id
				FROM queue_items q
				JOIN campaigns c ON c.id = q.campaign_id
				WHERE q.status = 'pending'
				  AND q.scheduled_for <= NOW()
				  AND c.status = 'active'
				  AND c.sending_account = $2
				  AND (q.locked_at IS NULL OR q.locked_at < NOW() - INTERVAL '`+staleClaimAfter+`')
				ORDER BY q.scheduled_for ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, campaign_id, prospect_id, channel, COALESCE(variant, ''), subject, body, scheduled_for
		)
		SELECT
			cl.id, cl.campaign_id, cl.prospect_id, cl.channel, cl.variant,
			cl.subject, cl.body, cl.scheduled_for,
			p.id, p.campaign_id, COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
			COALESCE(p.company_name, ''), COALESCE(p.title, ''),
			COALESCE(p.email, ''), COALESCE(p.linkedin_urn, ''), p.status,
			c.from_identity
		FROM claimed cl
		JOIN prospects p ON p.id = cl.prospect_id
		JOIN campaigns c ON c.id = cl.campaign_id
	`, workerID, account, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due items: %w", err)
	}
	defer rows.Close()

	var items []DueItem
	for rows.Next() {
		var d DueItem
		if err := rows.Scan(
			&d.Item.ID, &d.Item.CampaignID, &d.Item.ProspectID, &d.Item.Channel, &d.Item.Variant,
			&d.Item.Subject, &d.Item.Body, &d.Item.ScheduledFor,
			&d.Prospect.ID, &d.Prospect.CampaignID, &d.Prospect.FirstName, &d.Prospect.LastName,
			&d.Prospect.CompanyName, &d.Prospect.Title,
			&d.Prospect.Email, &d.Prospect.LinkedInURN, &d.Prospect.Status,
			&d.FromIdentity,
		); err != nil {
			return nil, fmt.Errorf("scan due item: %w", err)
		}
		d.Item.Status = domain.QueuePending
		items = append(items, d)
	}
	return items, rows.Err()
}

// MarkSent records a successful dispatch. The rendered body is persisted so
// the audit trail holds what was actually sent, not the template.
func (s *QueueStore) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID, renderedBody string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'sent', provider_message_id = $2, body = $3, sent_at = NOW(), locked_at = NULL
		WHERE id = $1 AND status = 'pending'
	`, id, providerMessageID, renderedBody)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkFailed records a dispatch failure with its reason. There is no
// automatic retry; re-queueing is an explicit, separate operation.
func (s *QueueStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'failed', error_reason = $2, locked_at = NULL
		WHERE id = $1 AND status = 'pending'
	`, id, reason)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// CancelPendingForProspect transitions all pending items for a prospect to
// cancelled. Cancellation is a status transition, not a deletion; the audit
// trail is preserved.
func (s *QueueStore) CancelPendingForProspect(ctx context.Context, prospectID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'cancelled', locked_at = NULL
		WHERE prospect_id = $1 AND status = 'pending'
	`, prospectID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending for prospect: %w", err)
	}
	return res.RowsAffected()
}

// CancelPendingForCampaign transitions all pending items for a campaign to
// cancelled.
func (s *QueueStore) CancelPendingForCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'cancelled', locked_at = NULL
		WHERE campaign_id = $1 AND status = 'pending'
	`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("cancel pending for campaign: %w", err)
	}
	return res.RowsAffected()
}

// Requeue resets a failed item to pending at the given instant. This is the
// explicit re-queue operation; it never applies to items in any other state.
// Returns ErrNotFound when the item is missing or not failed, and
// ErrDuplicatePending when the prospect already has a pending item again.
func (s *QueueStore) Requeue(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'pending', scheduled_for = $2, error_reason = NULL,
		    provider_message_id = NULL, locked_at = NULL, worker_id = NULL
		WHERE id = $1 AND status = 'failed'
	`, id, at)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePending
		}
		return fmt.Errorf("requeue item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByProviderMessageID locates the queue item a provider callback refers
// to. Returns ErrNotFound when this system did not originate the message.
func (s *QueueStore) FindByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.QueueItem, error) {
	item := &domain.QueueItem{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, prospect_id, channel, COALESCE(variant, ''),
		       subject, body, scheduled_for, status, provider_message_id,
		       error_reason, created_at, sent_at
		FROM queue_items
		WHERE provider_message_id = $1
	`, providerMessageID).Scan(
		&item.ID, &item.CampaignID, &item.ProspectID, &item.Channel, &item.Variant,
		&item.Subject, &item.Body, &item.ScheduledFor, &item.Status, &item.ProviderMessageID,
		&item.ErrorReason, &item.CreatedAt, &item.SentAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by provider message id: %w", err)
	}
	return item, nil
}

// Get loads a queue item by ID.
func (s *QueueStore) Get(ctx context.Context, id uuid.UUID) (*domain.QueueItem, error) {
	item := &domain.QueueItem{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, prospect_id, channel, COALESCE(variant, ''),
		       subject, body, scheduled_for, status, provider_message_id,
		       error_reason, created_at, sent_at
		FROM queue_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.CampaignID, &item.ProspectID, &item.Channel, &item.Variant,
		&item.Subject, &item.Body, &item.ScheduledFor, &item.Status, &item.ProviderMessageID,
		&item.ErrorReason, &item.CreatedAt, &item.SentAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}
