// Package store implements the Postgres-backed system of record for the
// outreach engine: the durable send queue, prospects, and campaigns.
//
// All stores use inline SQL over database/sql. Queue inserts rely on a
// partial unique index (campaign, prospect, channel where status='pending')
// so the at-most-one-pending invariant is enforced by the database, never
// by check-then-insert in application code.
package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicatePending is returned when an insert or requeue would create a
// second pending queue item for the same campaign+prospect+channel.
var ErrDuplicatePending = errors.New("prospect already has a pending queue item for this channel")

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Stores bundles the per-entity stores over one connection pool.
type Stores struct {
	Queue     *QueueStore
	Prospects *ProspectStore
	Campaigns *CampaignStore
	Approvals *ApprovalStore
	Events    *EventStore
}

// New creates the store bundle.
func New(db *sql.DB) *Stores {
	return &Stores{
		Queue:     NewQueueStore(db),
		Prospects: NewProspectStore(db),
		Campaigns: NewCampaignStore(db),
		Approvals: NewApprovalStore(db),
		Events:    NewEventStore(db),
	}
}
