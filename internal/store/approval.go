package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// ApprovalStore persists human-review sessions for drafted replies.
type ApprovalStore struct {
	db *sql.DB
}

func NewApprovalStore(db *sql.DB) *ApprovalStore { return &ApprovalStore{db: db} }

const approvalColumns = `id, prospect_id, queue_item_id, channel, original_message,
	suggested_reply, confidence, COALESCE(assignee, ''), status,
	COALESCE(decided_by, ''), expires_at, created_at, decided_at`

func scanApproval(row interface{ Scan(...interface{}) error }) (*domain.ApprovalSession, error) {
	var s domain.ApprovalSession
	var decidedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.ProspectID, &s.QueueItemID, &s.Channel, &s.OriginalMessage,
		&s.SuggestedReply, &s.Confidence, &s.Assignee, &s.Status,
		&s.DecidedBy, &s.ExpiresAt, &s.CreatedAt, &decidedAt,
	)
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		s.DecidedAt = &decidedAt.Time
	}
	return &s, nil
}

// Insert creates a pending session. The partial unique index on
// (prospect_id) where status='pending' keeps one open session per
// prospect; a second reply before the first is reviewed is a no-op.
func (s *ApprovalStore) Insert(ctx context.Context, session *domain.ApprovalSession) (bool, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO approval_sessions
			(id, prospect_id, queue_item_id, channel, original_message,
			 suggested_reply, confidence, assignee, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), 'pending', $9, NOW())
		ON CONFLICT DO NOTHING
	`, session.ID, session.ProspectID, session.QueueItemID, session.Channel,
		session.OriginalMessage, session.SuggestedReply, session.Confidence,
		session.Assignee, session.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("insert approval session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert approval session: %w", err)
	}
	return n == 1, nil
}

// Get loads one session.
func (s *ApprovalStore) Get(ctx context.Context, id uuid.UUID) (*domain.ApprovalSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_sessions WHERE id = $1`, id)
	session, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get approval session: %w", err)
	}
	return session, nil
}

// ListPending returns open sessions oldest-first, optionally filtered
// by assignee.
func (s *ApprovalStore) ListPending(ctx context.Context, assignee string, limit int) ([]domain.ApprovalSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approval_sessions
		WHERE status = 'pending' AND ($1 = '' OR assignee = $1)
		ORDER BY created_at ASC
		LIMIT $2
	`, assignee, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ApprovalSession
	for rows.Next() {
		session, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// Decide records a reviewer decision. The WHERE status='pending' guard
// makes concurrent decisions first-wins; the loser gets zero rows.
func (s *ApprovalStore) Decide(ctx context.Context, id uuid.UUID, decision domain.ApprovalStatus, decidedBy, editedReply string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE approval_sessions
		SET status = $2,
		    decided_by = NULLIF($3, ''),
		    suggested_reply = CASE WHEN $4 <> '' THEN $4 ELSE suggested_reply END,
		    decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, decision, decidedBy, editedReply)
	if err != nil {
		return false, fmt.Errorf("decide approval session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decide approval session: %w", err)
	}
	return n == 1, nil
}

// ExpireBefore moves pending sessions whose deadline has passed to
// expired and returns their IDs.
func (s *ApprovalStore) ExpireBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE approval_sessions
		SET status = 'expired', decided_at = NOW()
		WHERE status = 'pending' AND expires_at <= $1
		RETURNING id
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire approval sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
