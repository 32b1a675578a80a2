package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// MessageTemplate is one variant of a campaign's outbound message.
// Subject is ignored for channels without a subject line.
type MessageTemplate struct {
	Subject string `json:"subject" db:"subject"`
	Body    string `json:"body" db:"body"`
}

// Campaign identifies a set of prospects, a channel, message variants,
// and the sending limits that govern their delivery.
type Campaign struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	WorkspaceID    uuid.UUID      `json:"workspace_id" db:"workspace_id"`
	Name           string         `json:"name" db:"name"`
	Channel        Channel        `json:"channel" db:"channel"`
	SendingAccount string         `json:"sending_account" db:"sending_account"`
	FromIdentity   string         `json:"from_identity" db:"from_identity"`
	TemplateA      MessageTemplate `json:"template_a"`
	TemplateB      MessageTemplate `json:"template_b"`
	DailyCap       int            `json:"daily_cap" db:"daily_cap"`
	Status         CampaignStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// ABEnabled reports whether the campaign has a second message variant.
func (c *Campaign) ABEnabled() bool {
	return c.TemplateB.Body != ""
}

// Template returns the message template for an assigned variant.
// An empty variant (single-template campaign) resolves to variant A.
func (c *Campaign) Template(variant string) MessageTemplate {
	if variant == "B" && c.ABEnabled() {
		return c.TemplateB
	}
	return c.TemplateA
}

// Validate checks the configuration required before any scheduling runs.
// Failures here are configuration errors: reported to the caller, no queue
// items created.
func (c *Campaign) Validate() error {
	if c.DailyCap <= 0 {
		return fmt.Errorf("campaign %s: daily cap must be positive, got %d", c.ID, c.DailyCap)
	}
	if c.TemplateA.Body == "" {
		return fmt.Errorf("campaign %s: missing message template", c.ID)
	}
	if c.SendingAccount == "" {
		return fmt.Errorf("campaign %s: no sending account configured", c.ID)
	}
	if _, err := ParseChannel(string(c.Channel)); err != nil {
		return fmt.Errorf("campaign %s: %w", c.ID, err)
	}
	return nil
}

// CanPause reports whether a campaign in the given status may be paused.
func CanPause(status CampaignStatus) (bool, string) {
	switch status {
	case CampaignActive:
		return true, ""
	default:
		return false, fmt.Sprintf("cannot pause campaign in '%s' status", status)
	}
}

// CanResume reports whether a campaign in the given status may be resumed.
func CanResume(status CampaignStatus) (bool, string) {
	switch status {
	case CampaignPaused:
		return true, ""
	default:
		return false, fmt.Sprintf("cannot resume campaign in '%s' status", status)
	}
}

// CanCancel reports whether a campaign may be cancelled. Completed
// campaigns are immutable; everything else can always be stopped.
func CanCancel(status CampaignStatus) (bool, string) {
	switch status {
	case CampaignCompleted:
		return false, fmt.Sprintf("cannot cancel campaign in '%s' status", status)
	default:
		return true, ""
	}
}
