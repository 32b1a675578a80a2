package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/compliance"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

// Scheduler assigns one compliant send instant per prospect per channel and
// materializes them as pending queue items. It is invoked per campaign by a
// user action or a cron trigger; it holds no state between runs.
type Scheduler struct {
	stores *store.Stores
}

// NewScheduler creates a scheduler over the given stores.
func NewScheduler(stores *store.Stores) *Scheduler {
	return &Scheduler{stores: stores}
}

// SkippedProspect records why a single prospect was left out of a run.
type SkippedProspect struct {
	ProspectID uuid.UUID `json:"prospect_id"`
	Reason     string    `json:"reason"`
}

// ScheduleResult summarizes one scheduling run.
type ScheduleResult struct {
	Scheduled int               `json:"scheduled"`
	// Deferred prospects exceeded the daily cap. They stay pending and are
	// picked up by a future run, never silently dropped.
	Deferred int                `json:"deferred"`
	Skipped  []SkippedProspect  `json:"skipped,omitempty"`
}

// SpacingInterval computes the inter-message gap that exactly exhausts the
// daily cap within one business window: window duration / cap. A 9-hour
// window with a cap of 40 yields 13m30s.
func SpacingInterval(w compliance.Window, dailyCap int) time.Duration {
	if dailyCap <= 0 {
		return 0
	}
	return w.Duration() / time.Duration(dailyCap)
}

// PlanSendTimes computes the scheduled instants for n prospects starting at
// from. The i-th candidate is window start + i*interval; each candidate is
// independently passed through the compliance calendar, so a run spanning a
// holiday pushes later-indexed prospects to the next business day while
// earlier ones stay same-day.
func PlanSendTimes(from time.Time, n int, w compliance.Window, dailyCap int) []time.Time {
	base := compliance.NextCompliantInstant(from, w)
	interval := SpacingInterval(w, dailyCap)

	times := make([]time.Time, n)
	for i := 0; i < n; i++ {
		candidate := base.Add(time.Duration(i) * interval)
		times[i] = compliance.NextCompliantInstant(candidate, w)
	}
	return times
}

// Schedule creates pending queue items for the given prospects. Prospects
// beyond the campaign's remaining daily budget are deferred; prospects
// missing the channel identifier are skipped with a recorded reason; a
// prospect that already has a pending item for this campaign+channel is
// left untouched by the insert-or-no-op queue write.
//
// Configuration errors (invalid cap, malformed window) fail fast before any
// queue items are created.
func (s *Scheduler) Schedule(ctx context.Context, campaign *domain.Campaign, prospects []domain.Prospect, w compliance.Window, from time.Time) (*ScheduleResult, error) {
	if err := campaign.Validate(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("campaign %s: %w", campaign.ID, err)
	}

	usedToday, err := s.stores.Campaigns.ScheduledTodayCount(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	remaining := campaign.DailyCap - usedToday
	if remaining < 0 {
		remaining = 0
	}

	result := &ScheduleResult{}
	batch := prospects
	if len(batch) > remaining {
		result.Deferred = len(batch) - remaining
		batch = batch[:remaining]
	}
	if len(batch) == 0 {
		return result, nil
	}

	times := PlanSendTimes(from, len(batch), w, campaign.DailyCap)

	for i, p := range batch {
		if p.ChannelIdentifier(campaign.Channel) == "" {
			result.Skipped = append(result.Skipped, SkippedProspect{
				ProspectID: p.ID,
				Reason:     fmt.Sprintf("missing %s identifier", campaign.Channel),
			})
			continue
		}

		variant := AssignVariant(i, campaign.ABEnabled())
		tmpl := campaign.Template(variant)

		item := &domain.QueueItem{
			CampaignID:   campaign.ID,
			ProspectID:   p.ID,
			Channel:      campaign.Channel,
			Variant:      variant,
			Subject:      tmpl.Subject,
			Body:         tmpl.Body,
			ScheduledFor: times[i],
		}

		created, err := s.stores.Queue.InsertPending(ctx, item)
		if err != nil {
			return result, fmt.Errorf("schedule prospect %s: %w", p.ID, err)
		}
		if !created {
			result.Skipped = append(result.Skipped, SkippedProspect{
				ProspectID: p.ID,
				Reason:     "pending item already exists",
			})
			continue
		}

		if _, err := s.stores.Prospects.Advance(ctx, p.ID, domain.ProspectScheduled); err != nil {
			log.Printf("[Scheduler] Failed to advance prospect %s to scheduled: %v", p.ID, err)
		}
		result.Scheduled++
	}

	log.Printf("[Scheduler] Campaign %s: scheduled %d, deferred %d, skipped %d",
		campaign.ID, result.Scheduled, result.Deferred, len(result.Skipped))
	return result, nil
}
