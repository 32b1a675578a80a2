package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/httputil"
)

// maxWebhookBody caps webhook payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// sesEvent is the subset of the SES event notification the ingestor
// needs. SES posts one event per request when configured with a raw
// HTTPS destination.
type sesEvent struct {
	EventType string `json:"eventType"`
	Mail      struct {
		MessageID string `json:"messageId"`
	} `json:"mail"`
	Bounce struct {
		BounceType string `json:"bounceType"`
	} `json:"bounce"`
	Reply struct {
		Text string `json:"text"`
	} `json:"reply"`
}

// sesEventKinds maps SES event type names onto the engine's kinds.
// Unlisted types (Send, Rendering Failure, Complaint) fall through as
// unknown and are logged and dropped.
var sesEventKinds = map[string]domain.EventKind{
	"delivery": domain.EventDelivered,
	"open":     domain.EventOpened,
	"click":    domain.EventClicked,
	"bounce":   domain.EventBounced,
	"reply":    domain.EventReplied,
}

// EmailWebhook ingests SES event notifications. The response is 200
// once the event is durably recorded, even when processing it failed;
// only a failure to record returns 5xx so the provider retries.
func (h *Handlers) EmailWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	var payload sesEvent
	if err := json.Unmarshal(raw, &payload); err != nil {
		httputil.BadRequest(w, "invalid JSON")
		return
	}

	kind, known := sesEventKinds[strings.ToLower(payload.EventType)]
	if !known {
		// Still logged durably for later inspection.
		kind = domain.EventKind(strings.ToLower(payload.EventType))
	}

	ev := &domain.ChannelEvent{
		Channel:           domain.ChannelEmail,
		Kind:              kind,
		ProviderMessageID: payload.Mail.MessageID,
		ReplyText:         payload.Reply.Text,
		OccurredAt:        time.Now(),
		Payload:           raw,
	}

	if err := h.ingestor.Ingest(r.Context(), ev); err != nil {
		log.Printf("[API] Email webhook ingest failed: %v", err)
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "accepted"})
}

// linkedInEvent is the automation provider's webhook body.
type linkedInEvent struct {
	Event     string `json:"event"`
	MessageID string `json:"message_id"`
	ReplyText string `json:"reply_text"`
}

var linkedInEventKinds = map[string]domain.EventKind{
	"message_delivered": domain.EventDelivered,
	"message_seen":      domain.EventOpened,
	"message_replied":   domain.EventReplied,
	"invite_declined":   domain.EventBounced,
}

// LinkedInWebhook ingests events from the LinkedIn automation provider,
// with the same acknowledgement contract as EmailWebhook: 200 once the
// event is durably recorded, 5xx only when recording itself failed.
func (h *Handlers) LinkedInWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	var payload linkedInEvent
	if err := json.Unmarshal(raw, &payload); err != nil {
		httputil.BadRequest(w, "invalid JSON")
		return
	}

	kind, known := linkedInEventKinds[strings.ToLower(payload.Event)]
	if !known {
		kind = domain.EventKind(strings.ToLower(payload.Event))
	}

	ev := &domain.ChannelEvent{
		Channel:           domain.ChannelLinkedIn,
		Kind:              kind,
		ProviderMessageID: payload.MessageID,
		ReplyText:         payload.ReplyText,
		OccurredAt:        time.Now(),
		Payload:           raw,
	}

	if err := h.ingestor.Ingest(r.Context(), ev); err != nil {
		log.Printf("[API] LinkedIn webhook ingest failed: %v", err)
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "accepted"})
}
