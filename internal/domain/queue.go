package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// QueueItemStatus enumerates the states of a scheduled send-task.
type QueueItemStatus string

const (
	QueuePending   QueueItemStatus = "pending"
	QueueSent      QueueItemStatus = "sent"
	QueueFailed    QueueItemStatus = "failed"
	QueueCancelled QueueItemStatus = "cancelled"
)

// QueueItem is one persisted unit of outbound work: a single message to a
// single prospect on a single channel, due at ScheduledFor.
//
// Items are created by the scheduler and mutated only by the dispatcher and
// the webhook ingestor. The at-most-one-pending invariant (one pending item
// per campaign+prospect+channel) is enforced by a partial unique index, so
// inserts are insert-or-no-op, never check-then-insert.
type QueueItem struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CampaignID        uuid.UUID       `json:"campaign_id" db:"campaign_id"`
	ProspectID        uuid.UUID       `json:"prospect_id" db:"prospect_id"`
	Channel           Channel         `json:"channel" db:"channel"`
	Variant           string          `json:"variant,omitempty" db:"variant"`
	Subject           string          `json:"subject" db:"subject"`
	Body              string          `json:"body" db:"body"`
	ScheduledFor      time.Time       `json:"scheduled_for" db:"scheduled_for"`
	Status            QueueItemStatus `json:"status" db:"status"`
	ProviderMessageID sql.NullString  `json:"provider_message_id" db:"provider_message_id"`
	ErrorReason       sql.NullString  `json:"error_reason" db:"error_reason"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	SentAt            sql.NullTime    `json:"sent_at" db:"sent_at"`
}
