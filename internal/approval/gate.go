// Package approval implements the human-in-the-loop gate for drafted
// replies. No AI-suggested reply reaches a prospect without a reviewer
// decision, and every approval produces exactly one queue item.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/compliance"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

// ErrAlreadyDecided is returned when a decision arrives for a session
// that is no longer pending. The first decision won; this one is a
// duplicate or a race loser.
var ErrAlreadyDecided = errors.New("approval session already decided")

// ErrInvalidDecision is returned for a decision value a reviewer may
// not submit.
var ErrInvalidDecision = errors.New("invalid approval decision")

// ReplyDrafter produces a suggested reply to an inbound message along
// with a confidence score in [0, 1].
type ReplyDrafter interface {
	Draft(ctx context.Context, prospect *domain.Prospect, inbound string) (reply string, confidence float64, err error)
}

// StockDrafter is the fallback drafter when no AI backend is wired.
// It produces a short acknowledgement and a low confidence score so
// reviewers know the text needs editing.
type StockDrafter struct{}

func (StockDrafter) Draft(_ context.Context, prospect *domain.Prospect, _ string) (string, float64, error) {
	greeting := "Hi"
	if prospect.FirstName != "" {
		greeting = "Hi " + prospect.FirstName
	}
	reply := greeting + ",\n\nThanks for getting back to me. I'd be happy to share more detail. Would a short call this week work?\n\nBest regards"
	return reply, 0.2, nil
}

// Gate coordinates review sessions: opening them on inbound replies,
// applying reviewer decisions, and expiring sessions nobody reviewed.
type Gate struct {
	stores   *store.Stores
	drafter  ReplyDrafter
	window   compliance.Window
	ttl      time.Duration
	assignee string
}

func NewGate(stores *store.Stores, drafter ReplyDrafter, window compliance.Window, ttl time.Duration) *Gate {
	if drafter == nil {
		drafter = StockDrafter{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Gate{stores: stores, drafter: drafter, window: window, ttl: ttl}
}

// SetDefaultAssignee sets the reviewer every new session is assigned to,
// typically the workspace admin's address. Empty leaves sessions
// unassigned; anyone can pick them up.
func (g *Gate) SetDefaultAssignee(assignee string) {
	g.assignee = assignee
}

// CreateForReply drafts a reply to the inbound message and opens a
// pending session for it. A prospect with an open session gets no
// second one; the reviewer sees the thread, not every message.
func (g *Gate) CreateForReply(ctx context.Context, item *domain.QueueItem, prospect *domain.Prospect, inbound string) error {
	reply, confidence, err := g.drafter.Draft(ctx, prospect, inbound)
	if err != nil {
		return fmt.Errorf("draft reply: %w", err)
	}

	session := &domain.ApprovalSession{
		ProspectID:      prospect.ID,
		QueueItemID:     item.ID,
		Channel:         item.Channel,
		OriginalMessage: inbound,
		SuggestedReply:  reply,
		Confidence:      confidence,
		Assignee:        g.assignee,
		ExpiresAt:       time.Now().Add(g.ttl),
	}
	created, err := g.stores.Approvals.Insert(ctx, session)
	if err != nil {
		return fmt.Errorf("open approval session: %w", err)
	}
	if !created {
		log.Printf("[Approval] Prospect %s already has an open session, skipping", prospect.ID)
		return nil
	}
	log.Printf("[Approval] Opened session %s for prospect %s (confidence %.2f)", session.ID, prospect.ID, confidence)
	return nil
}

// Decide applies a reviewer decision. Approval enqueues the reply as a
// new queue item at the next compliant instant; rejection and expiry
// send nothing. Concurrent decisions are first-wins.
func (g *Gate) Decide(ctx context.Context, sessionID uuid.UUID, decision domain.ApprovalStatus, decidedBy, editedReply string) (*domain.ApprovalSession, error) {
	if !domain.ValidDecision(decision) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDecision, decision)
	}
	if decision == domain.ApprovalEditedAndApproved && editedReply == "" {
		return nil, fmt.Errorf("%w: edited_and_approved requires the edited text", ErrInvalidDecision)
	}

	applied, err := g.stores.Approvals.Decide(ctx, sessionID, decision, decidedBy, editedReply)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrAlreadyDecided
	}

	session, err := g.stores.Approvals.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload approval session: %w", err)
	}

	if decision == domain.ApprovalRejected {
		log.Printf("[Approval] Session %s rejected by %s", sessionID, decidedBy)
		return session, nil
	}

	if err := g.enqueueReply(ctx, session); err != nil {
		return nil, err
	}
	log.Printf("[Approval] Session %s %s by %s, reply queued", sessionID, decision, decidedBy)
	return session, nil
}

// enqueueReply schedules the approved reply at the next compliant
// instant. The pending-uniqueness index makes a duplicate decision
// replay harmless.
func (g *Gate) enqueueReply(ctx context.Context, session *domain.ApprovalSession) error {
	original, err := g.stores.Queue.Get(ctx, session.QueueItemID)
	if err != nil {
		return fmt.Errorf("load original queue item: %w", err)
	}

	sendAt := compliance.NextCompliantInstant(time.Now(), g.window)

	subject := original.Subject
	if session.Channel == domain.ChannelEmail && subject != "" {
		subject = "Re: " + subject
	}

	item := &domain.QueueItem{
		CampaignID:   original.CampaignID,
		ProspectID:   session.ProspectID,
		Channel:      session.Channel,
		Subject:      subject,
		Body:         session.SuggestedReply,
		ScheduledFor: sendAt,
	}
	created, err := g.stores.Queue.InsertPending(ctx, item)
	if err != nil {
		return fmt.Errorf("enqueue approved reply: %w", err)
	}
	if !created {
		log.Printf("[Approval] Prospect %s already has a pending item, reply not enqueued", session.ProspectID)
	}
	return nil
}

// ExpireStale closes pending sessions past their deadline. Expired
// sessions enqueue nothing; silence from the reviewer means no send.
func (g *Gate) ExpireStale(ctx context.Context) (int, error) {
	ids, err := g.stores.Approvals.ExpireBefore(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		log.Printf("[Approval] Expired %d unreviewed sessions", len(ids))
	}
	return len(ids), nil
}
