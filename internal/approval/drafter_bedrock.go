package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// BedrockDrafter drafts replies with a Claude model on AWS Bedrock.
// All data stays within AWS - no external API calls. Drafts only ever
// reach a prospect after a reviewer approves them.
type BedrockDrafter struct {
	client  *bedrockruntime.Client
	modelID string
}

type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

const drafterSystemPrompt = `You are drafting a reply on behalf of a sales representative to a prospect who responded to an outreach message. Write a short, professional reply (under 120 words) that acknowledges their message and moves the conversation forward. Do not invent facts about the product or pricing. Respond with JSON only: {"reply": "...", "confidence": 0.0}
where confidence in [0,1] reflects how well the prospect's intent was understood.`

// NewBedrockDrafter creates a Bedrock-backed reply drafter.
func NewBedrockDrafter(ctx context.Context, modelID, region string) (*BedrockDrafter, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if modelID == "" {
		modelID = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	log.Printf("[Approval] Bedrock drafter initialized with model=%s, region=%s", modelID, region)
	return &BedrockDrafter{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// Draft asks the model for a suggested reply. A malformed model response
// is an error; the caller falls through to opening no session rather
// than presenting garbage to a reviewer.
func (b *BedrockDrafter) Draft(ctx context.Context, prospect *domain.Prospect, inbound string) (string, float64, error) {
	userMessage := fmt.Sprintf("Prospect: %s %s, %s at %s\n\nTheir message:\n%s",
		prospect.FirstName, prospect.LastName, prospect.Title, prospect.CompanyName, inbound)

	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1000,
		System:           drafterSystemPrompt,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: userMessage}}},
		},
		Temperature: 0.7,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return "", 0, fmt.Errorf("Bedrock API error: %w", err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", 0, fmt.Errorf("parse response: %w", err)
	}

	var responseText string
	for _, content := range response.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	reply, confidence, err := parseDraft(responseText)
	if err != nil {
		return "", 0, err
	}

	log.Printf("[Approval] Drafted reply for prospect %s (in: %d tokens, out: %d tokens, confidence %.2f)",
		prospect.ID, response.Usage.InputTokens, response.Usage.OutputTokens, confidence)
	return reply, confidence, nil
}

// parseDraft extracts the JSON body from the model output, tolerating
// surrounding prose or code fences.
func parseDraft(text string) (string, float64, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", 0, fmt.Errorf("no JSON object in model output")
	}

	var draft struct {
		Reply      string  `json:"reply"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &draft); err != nil {
		return "", 0, fmt.Errorf("parse draft JSON: %w", err)
	}
	if draft.Reply == "" {
		return "", 0, fmt.Errorf("model returned an empty reply")
	}
	if draft.Confidence < 0 {
		draft.Confidence = 0
	}
	if draft.Confidence > 1 {
		draft.Confidence = 1
	}
	return draft.Reply, draft.Confidence, nil
}
