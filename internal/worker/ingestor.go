package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

// ReplyReviewer opens a human-review session for an inbound reply.
// Implemented by the approval gate; an interface here keeps the
// ingestor free of the approval package.
type ReplyReviewer interface {
	CreateForReply(ctx context.Context, item *domain.QueueItem, prospect *domain.Prospect, replyText string) error
}

// OptOutClassifier decides whether a reply is an opt-out request.
type OptOutClassifier interface {
	IsOptOut(replyText string) bool
}

// KeywordClassifier is the default opt-out classifier. It matches a
// fixed phrase list case-insensitively; anything smarter plugs in
// behind the same interface.
type KeywordClassifier struct{}

var optOutPhrases = []string{
	"unsubscribe",
	"opt out",
	"opt-out",
	"remove me",
	"stop emailing",
	"stop contacting",
	"not interested",
	"take me off",
	"do not contact",
}

func (KeywordClassifier) IsOptOut(replyText string) bool {
	lower := strings.ToLower(replyText)
	for _, phrase := range optOutPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Ingestor turns provider webhook events into prospect state changes.
// Every event is logged durably before any state it touches, and all
// transitions go through the monotonic state machine, so replayed or
// out-of-order deliveries are no-ops rather than corruption.
type Ingestor struct {
	stores     *store.Stores
	reviewer   ReplyReviewer
	classifier OptOutClassifier
}

func NewIngestor(stores *store.Stores, reviewer ReplyReviewer, classifier OptOutClassifier) *Ingestor {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Ingestor{stores: stores, reviewer: reviewer, classifier: classifier}
}

// Ingest processes one webhook event. It returns an error only when
// the event could not be durably recorded; once the record exists,
// processing failures are captured in the event's outcome and the call
// succeeds, so the provider is never asked to retry a payload this
// engine already holds. Events for messages this engine did not send,
// and event kinds it does not track, are logged and dropped.
func (g *Ingestor) Ingest(ctx context.Context, ev *domain.ChannelEvent) error {
	logID, err := g.stores.Events.Record(ctx, ev)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	outcome, err := g.process(ctx, ev)
	if err != nil {
		log.Printf("[Ingestor] Event %s: processing failed: %v", logID, err)
		if markErr := g.stores.Events.MarkProcessed(ctx, logID, "error: "+err.Error()); markErr != nil {
			log.Printf("[Ingestor] Event %s: outcome write failed: %v", logID, markErr)
		}
		return nil
	}
	if err := g.stores.Events.MarkProcessed(ctx, logID, outcome); err != nil {
		log.Printf("[Ingestor] Event %s: outcome write failed: %v", logID, err)
	}
	return nil
}

func (g *Ingestor) process(ctx context.Context, ev *domain.ChannelEvent) (string, error) {
	if !domain.KnownEventKind(ev.Kind) {
		log.Printf("[Ingestor] Ignoring unknown event kind %q on %s", ev.Kind, ev.Channel)
		return "ignored_unknown_kind", nil
	}

	item, err := g.stores.Queue.FindByProviderMessageID(ctx, ev.ProviderMessageID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[Ingestor] No queue item for provider message %s, dropping %s event", ev.ProviderMessageID, ev.Kind)
		return "unmatched", nil
	}
	if err != nil {
		return "", fmt.Errorf("find queue item: %w", err)
	}

	switch ev.Kind {
	case domain.EventBounced:
		return g.handleBounce(ctx, item)
	case domain.EventReplied:
		return g.handleReply(ctx, item, ev.ReplyText)
	default:
		next := statusForEvent(ev.Kind)
		advanced, err := g.stores.Prospects.Advance(ctx, item.ProspectID, next)
		if err != nil {
			return "", fmt.Errorf("advance prospect: %w", err)
		}
		if !advanced {
			return "duplicate", nil
		}
		return "advanced_" + string(next), nil
	}
}

func statusForEvent(kind domain.EventKind) domain.ProspectStatus {
	switch kind {
	case domain.EventDelivered:
		return domain.ProspectDelivered
	case domain.EventOpened:
		return domain.ProspectOpened
	case domain.EventClicked:
		return domain.ProspectClicked
	default:
		return domain.ProspectReplied
	}
}

// handleBounce moves the prospect to the absorbing bounced state and
// cancels anything still queued for them. A bounce report for an
// already-bounced prospect is a duplicate, not an error.
func (g *Ingestor) handleBounce(ctx context.Context, item *domain.QueueItem) (string, error) {
	advanced, err := g.stores.Prospects.Advance(ctx, item.ProspectID, domain.ProspectBounced)
	if err != nil {
		return "", fmt.Errorf("advance prospect to bounced: %w", err)
	}
	cancelled, err := g.stores.Queue.CancelPendingForProspect(ctx, item.ProspectID)
	if err != nil {
		return "", fmt.Errorf("cancel pending items: %w", err)
	}
	if cancelled > 0 {
		log.Printf("[Ingestor] Prospect %s bounced, cancelled %d pending items", item.ProspectID, cancelled)
	}
	if !advanced {
		return "duplicate", nil
	}
	return "bounced", nil
}

func (g *Ingestor) handleReply(ctx context.Context, item *domain.QueueItem, replyText string) (string, error) {
	if g.classifier.IsOptOut(replyText) {
		if _, err := g.stores.Prospects.Advance(ctx, item.ProspectID, domain.ProspectOptedOut); err != nil {
			return "", fmt.Errorf("advance prospect to opted_out: %w", err)
		}
		cancelled, err := g.stores.Queue.CancelPendingForProspect(ctx, item.ProspectID)
		if err != nil {
			return "", fmt.Errorf("cancel pending items: %w", err)
		}
		log.Printf("[Ingestor] Prospect %s opted out, cancelled %d pending items", item.ProspectID, cancelled)
		return "opted_out", nil
	}

	advanced, err := g.stores.Prospects.Advance(ctx, item.ProspectID, domain.ProspectReplied)
	if err != nil {
		return "", fmt.Errorf("advance prospect to replied: %w", err)
	}
	if !advanced {
		// Duplicate reply event, or the prospect already moved past
		// replied. Either way no second review session is opened.
		return "duplicate", nil
	}

	if g.reviewer != nil {
		prospect, err := g.stores.Prospects.Get(ctx, item.ProspectID)
		if err != nil {
			return "", fmt.Errorf("load prospect for review: %w", err)
		}
		if err := g.reviewer.CreateForReply(ctx, item, prospect, replyText); err != nil {
			return "", fmt.Errorf("open review session: %w", err)
		}
	}
	return "replied", nil
}
