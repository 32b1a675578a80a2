package domain

import "testing"

func TestProspectStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		name string
		from ProspectStatus
		to   ProspectStatus
		want bool
	}{
		{"sent to delivered", ProspectSent, ProspectDelivered, true},
		{"delivered to opened", ProspectDelivered, ProspectOpened, true},
		{"opened to clicked", ProspectOpened, ProspectClicked, true},
		{"skip intermediate - sent to clicked", ProspectSent, ProspectClicked, true},
		{"reply before open recorded", ProspectSent, ProspectReplied, true},
		{"reply from pending", ProspectPending, ProspectReplied, true},
		{"no backward - opened to delivered", ProspectOpened, ProspectDelivered, false},
		{"no backward - replied to opened", ProspectReplied, ProspectOpened, false},
		{"same status is not an advance", ProspectDelivered, ProspectDelivered, false},
		{"bounce from any state", ProspectOpened, ProspectBounced, true},
		{"opt out after reply", ProspectReplied, ProspectOptedOut, true},
		{"failed from scheduled", ProspectScheduled, ProspectFailed, true},
		{"opted_out is absorbing", ProspectOptedOut, ProspectReplied, false},
		{"opted_out not reverted by click", ProspectOptedOut, ProspectClicked, false},
		{"bounced is absorbing", ProspectBounced, ProspectDelivered, false},
		{"bounced cannot opt out", ProspectBounced, ProspectOptedOut, false},
		{"failed is absorbing", ProspectFailed, ProspectSent, false},
		{"meeting after reply", ProspectReplied, ProspectMeetingRequested, true},
		{"completed after meeting", ProspectMeetingRequested, ProspectCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
				t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestProspectStatus_Terminal(t *testing.T) {
	terminal := []ProspectStatus{ProspectOptedOut, ProspectBounced, ProspectFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	active := []ProspectStatus{ProspectPending, ProspectScheduled, ProspectSent, ProspectDelivered, ProspectOpened, ProspectClicked, ProspectReplied, ProspectMeetingRequested, ProspectCompleted}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestProspect_ChannelIdentifier(t *testing.T) {
	p := Prospect{Email: "jane@acme.com", LinkedInURN: "urn:li:person:abc"}

	if got := p.ChannelIdentifier(ChannelEmail); got != "jane@acme.com" {
		t.Errorf("email identifier = %q", got)
	}
	if got := p.ChannelIdentifier(ChannelLinkedIn); got != "urn:li:person:abc" {
		t.Errorf("linkedin identifier = %q", got)
	}

	empty := Prospect{}
	if got := empty.ChannelIdentifier(ChannelEmail); got != "" {
		t.Errorf("missing identifier should be empty, got %q", got)
	}
}

func TestCampaign_Validate(t *testing.T) {
	valid := Campaign{
		Channel:        ChannelEmail,
		SendingAccount: "outbound@acme.com",
		DailyCap:       40,
		TemplateA:      MessageTemplate{Subject: "Hi", Body: "Hello {first_name}"},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid campaign: %v", err)
	}

	noCap := valid
	noCap.DailyCap = 0
	if err := noCap.Validate(); err == nil {
		t.Error("zero daily cap should fail validation")
	}

	noTemplate := valid
	noTemplate.TemplateA = MessageTemplate{}
	if err := noTemplate.Validate(); err == nil {
		t.Error("missing template should fail validation")
	}

	noAccount := valid
	noAccount.SendingAccount = ""
	if err := noAccount.Validate(); err == nil {
		t.Error("missing sending account should fail validation")
	}
}

func TestCampaign_Template(t *testing.T) {
	c := Campaign{
		TemplateA: MessageTemplate{Subject: "A", Body: "body a"},
		TemplateB: MessageTemplate{Subject: "B", Body: "body b"},
	}
	if got := c.Template("B"); got.Subject != "B" {
		t.Errorf("variant B subject = %q", got.Subject)
	}
	if got := c.Template("A"); got.Subject != "A" {
		t.Errorf("variant A subject = %q", got.Subject)
	}
	if got := c.Template(""); got.Subject != "A" {
		t.Errorf("no variant should resolve to A, got %q", got.Subject)
	}

	single := Campaign{TemplateA: MessageTemplate{Subject: "only", Body: "x"}}
	if got := single.Template("B"); got.Subject != "only" {
		t.Errorf("B on single-template campaign should fall back to A, got %q", got.Subject)
	}
}
