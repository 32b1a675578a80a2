package approval

import (
	"strings"
	"testing"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantReply string
		wantConf  float64
		wantErr   bool
	}{
		{
			name:      "plain JSON",
			text:      `{"reply": "Happy to chat Thursday.", "confidence": 0.85}`,
			wantReply: "Happy to chat Thursday.",
			wantConf:  0.85,
		},
		{
			name:      "code fenced",
			text:      "```json\n{\"reply\": \"Sounds good.\", \"confidence\": 0.6}\n```",
			wantReply: "Sounds good.",
			wantConf:  0.6,
		},
		{
			name:      "prose around the object",
			text:      `Here is the draft: {"reply": "Thanks!", "confidence": 0.5} Let me know.`,
			wantReply: "Thanks!",
			wantConf:  0.5,
		},
		{
			name:      "confidence clamped to one",
			text:      `{"reply": "Sure.", "confidence": 1.4}`,
			wantReply: "Sure.",
			wantConf:  1.0,
		},
		{
			name:    "no JSON at all",
			text:    "I cannot produce a draft.",
			wantErr: true,
		},
		{
			name:    "empty reply",
			text:    `{"reply": "", "confidence": 0.9}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, conf, err := parseDraft(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDraft(%q) expected error, got reply %q", tt.text, reply)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDraft(%q) error: %v", tt.text, err)
			}
			if reply != tt.wantReply {
				t.Errorf("reply = %q, want %q", reply, tt.wantReply)
			}
			if conf != tt.wantConf {
				t.Errorf("confidence = %v, want %v", conf, tt.wantConf)
			}
		})
	}
}

func TestDrafterSystemPromptAsksForJSON(t *testing.T) {
	if !strings.Contains(drafterSystemPrompt, `"reply"`) || !strings.Contains(drafterSystemPrompt, `"confidence"`) {
		t.Error("system prompt must request the reply/confidence JSON shape parseDraft expects")
	}
}
