package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus enumerates the states of a human-review session.
type ApprovalStatus string

const (
	ApprovalPending           ApprovalStatus = "pending"
	ApprovalApproved          ApprovalStatus = "approved"
	ApprovalEditedAndApproved ApprovalStatus = "edited_and_approved"
	ApprovalRejected          ApprovalStatus = "rejected"
	ApprovalExpired           ApprovalStatus = "expired"
)

// ValidDecision reports whether a status is one a reviewer may submit.
// Expiry is never submitted; it is applied by the expiry sweep.
func ValidDecision(s ApprovalStatus) bool {
	switch s {
	case ApprovalApproved, ApprovalEditedAndApproved, ApprovalRejected:
		return true
	}
	return false
}

// ApprovalSession holds an AI-drafted reply awaiting a human decision.
// On approval it produces exactly one new queue item; on rejection or
// expiry it is terminal with no further side effects.
type ApprovalSession struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	ProspectID      uuid.UUID      `json:"prospect_id" db:"prospect_id"`
	QueueItemID     uuid.UUID      `json:"queue_item_id" db:"queue_item_id"`
	Channel         Channel        `json:"channel" db:"channel"`
	OriginalMessage string         `json:"original_message" db:"original_message"`
	SuggestedReply  string         `json:"suggested_reply" db:"suggested_reply"`
	Confidence      float64        `json:"confidence" db:"confidence"`
	Assignee        string         `json:"assignee" db:"assignee"`
	Status          ApprovalStatus `json:"status" db:"status"`
	DecidedBy       string         `json:"decided_by,omitempty" db:"decided_by"`
	ExpiresAt       time.Time      `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty" db:"decided_at"`
}

// Decided reports whether the session has reached a terminal state.
func (s *ApprovalSession) Decided() bool {
	return s.Status != ApprovalPending
}
