package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// EventStore is the append-only log of raw provider webhook events.
// Every event is written before any state change it triggers, so a
// crash mid-processing loses nothing and reprocessing is always
// possible from the log.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore { return &EventStore{db: db} }

// Record appends one raw event and returns its log ID.
func (s *EventStore) Record(ctx context.Context, ev *domain.ChannelEvent) (uuid.UUID, error) {
	id := uuid.New()
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, channel, kind, provider_message_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, id, ev.Channel, ev.Kind, ev.ProviderMessageID, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record webhook event: %w", err)
	}
	return id, nil
}

// MarkProcessed annotates a logged event with its processing outcome.
func (s *EventStore) MarkProcessed(ctx context.Context, id uuid.UUID, outcome string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_events SET processed_at = NOW(), outcome = $2 WHERE id = $1
	`, id, outcome)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

// CountByOutcome reports processing outcomes since a cutoff, for the
// health endpoint.
func (s *EventStore) CountByOutcome(ctx context.Context, sinceDays int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(outcome, 'unprocessed'), COUNT(*)
		FROM webhook_events
		WHERE received_at >= NOW() - ($1 || ' days')::INTERVAL
		GROUP BY 1
	`, sinceDays)
	if err != nil {
		return nil, fmt.Errorf("count webhook events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
