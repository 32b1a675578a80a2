package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/httpretry"
)

// LinkedInAdapter sends connection messages through the LinkedIn
// automation provider's REST API. One adapter serves one provider
// seat; the seat is selected by the sending account on the campaign.
// Transient 5xx responses retry at the transport layer; 429 does not,
// so the dispatcher sees rate limits immediately.
type LinkedInAdapter struct {
	baseURL string
	apiKey  string
	client  httpretry.HTTPDoer
}

func NewLinkedInAdapter(baseURL, apiKey string) *LinkedInAdapter {
	return &LinkedInAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpretry.NewRetryClient(&http.Client{Timeout: 30 * time.Second}, 2),
	}
}

// Channel implements Adapter.
func (a *LinkedInAdapter) Channel() domain.Channel { return domain.ChannelLinkedIn }

type linkedInSendRequest struct {
	SeatID       string `json:"seat_id"`
	RecipientURN string `json:"recipient_urn"`
	Message      string `json:"message"`
}

type linkedInSendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Send posts one message to the automation provider. HTTP 429 maps to
// ErrRateLimited; other 4xx responses are permanent for this item.
func (a *LinkedInAdapter) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	payload, err := json.Marshal(linkedInSendRequest{
		SeatID:       msg.FromIdentity,
		RecipientURN: msg.To,
		Message:      msg.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal linkedin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build linkedin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("linkedin send: %w", ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var apiResp linkedInSendResponse
		reason := fmt.Sprintf("linkedin API status %d", resp.StatusCode)
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Error != "" {
			reason = apiResp.Error
		}
		return nil, &PermanentError{Reason: reason}
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("linkedin send: status %d", resp.StatusCode)
	}

	var apiResp linkedInSendResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("decode linkedin response: %w", err)
	}

	log.Printf("[LinkedInAdapter] Sent to %s (id: %s)", msg.To, apiResp.MessageID)

	return &SendResult{ProviderMessageID: apiResp.MessageID, SentAt: time.Now()}, nil
}
