package domain

import (
	"fmt"
	"time"
)

// Channel identifies the delivery transport for an outbound message.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelLinkedIn Channel = "linkedin"
)

// ParseChannel validates a channel string.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelLinkedIn:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// EventKind enumerates delivery outcomes reported by channel providers.
type EventKind string

const (
	EventDelivered EventKind = "delivered"
	EventOpened    EventKind = "opened"
	EventClicked   EventKind = "clicked"
	EventReplied   EventKind = "replied"
	EventBounced   EventKind = "bounced"
)

// KnownEventKind reports whether the ingestor understands this event kind.
// Unknown kinds are recorded and ignored, never rejected.
func KnownEventKind(k EventKind) bool {
	switch k {
	case EventDelivered, EventOpened, EventClicked, EventReplied, EventBounced:
		return true
	}
	return false
}

// ChannelEvent is a normalized provider callback. Provider-specific webhook
// envelopes are flattened into this shape before ingestion.
type ChannelEvent struct {
	Channel           Channel   `json:"channel"`
	Kind              EventKind `json:"kind"`
	ProviderMessageID string    `json:"provider_message_id"`
	ReplyText         string    `json:"reply_text,omitempty"`
	OccurredAt        time.Time `json:"occurred_at,omitempty"`
	Payload           []byte    `json:"-"`
}
