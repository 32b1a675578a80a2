package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProspectStatus enumerates the funnel position of a prospect.
type ProspectStatus string

const (
	ProspectPending          ProspectStatus = "pending"
	ProspectScheduled        ProspectStatus = "scheduled"
	ProspectSent             ProspectStatus = "sent"
	ProspectDelivered        ProspectStatus = "delivered"
	ProspectOpened           ProspectStatus = "opened"
	ProspectClicked          ProspectStatus = "clicked"
	ProspectReplied          ProspectStatus = "replied"
	ProspectMeetingRequested ProspectStatus = "meeting_requested"
	ProspectCompleted        ProspectStatus = "completed"
	ProspectBounced          ProspectStatus = "bounced"
	ProspectOptedOut         ProspectStatus = "opted_out"
	ProspectFailed           ProspectStatus = "failed"
)

// statusRank orders the forward funnel. Higher rank = further along.
// Terminal (absorbing) statuses are not ranked; they are handled separately.
var statusRank = map[ProspectStatus]int{
	ProspectPending:          0,
	ProspectScheduled:        1,
	ProspectSent:             2,
	ProspectDelivered:        3,
	ProspectOpened:           4,
	ProspectClicked:          5,
	ProspectReplied:          6,
	ProspectMeetingRequested: 7,
	ProspectCompleted:        8,
}

// Terminal reports whether a status is absorbing: once reached, no event
// moves the prospect out of it.
func (s ProspectStatus) Terminal() bool {
	switch s {
	case ProspectOptedOut, ProspectBounced, ProspectFailed:
		return true
	}
	return false
}

// CanAdvanceTo reports whether a transition from s to next is legal.
// The funnel is strictly forward: providers may skip intermediate events
// (a reply can arrive before an open is recorded) but never move backward.
// Re-applying the current status is not an advance; callers treat it as a
// no-op, which is what makes duplicate webhook deliveries idempotent.
func (s ProspectStatus) CanAdvanceTo(next ProspectStatus) bool {
	if s.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Prospect is one target contact within a campaign.
type Prospect struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	CampaignID   uuid.UUID      `json:"campaign_id" db:"campaign_id"`
	FirstName    string         `json:"first_name" db:"first_name"`
	LastName     string         `json:"last_name" db:"last_name"`
	CompanyName  string         `json:"company_name" db:"company_name"`
	Title        string         `json:"title" db:"title"`
	Email        string         `json:"email" db:"email"`
	LinkedInURN  string         `json:"linkedin_urn" db:"linkedin_urn"`
	Status       ProspectStatus `json:"status" db:"status"`
	LastStatusAt time.Time      `json:"last_status_at" db:"last_status_at"`
}

// ChannelIdentifier returns the address for the given channel, or "" when
// the prospect cannot be reached on that channel.
func (p *Prospect) ChannelIdentifier(ch Channel) string {
	switch ch {
	case ChannelEmail:
		return p.Email
	case ChannelLinkedIn:
		return p.LinkedInURN
	}
	return ""
}

// MergeFields returns the personalization bindings used when rendering
// message templates for this prospect.
func (p *Prospect) MergeFields() map[string]interface{} {
	return map[string]interface{}{
		"first_name":   p.FirstName,
		"last_name":    p.LastName,
		"company_name": p.CompanyName,
		"title":        p.Title,
		"email":        p.Email,
	}
}
