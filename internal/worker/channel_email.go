package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/logger"
)

// EmailAdapter sends email through AWS SES using the SDK v2.
type EmailAdapter struct {
	region string
	client *sesv2.Client
}

// NewEmailAdapter creates an SES-backed email adapter. With empty
// credentials the default AWS credential chain is used (IAM role on ECS).
func NewEmailAdapter(accessKey, secretKey, region string) (*EmailAdapter, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize AWS config: %w", err)
	}

	return &EmailAdapter{
		region: region,
		client: sesv2.NewFromConfig(cfg),
	}, nil
}

// Channel implements Adapter.
func (a *EmailAdapter) Channel() domain.Channel { return domain.ChannelEmail }

// Send delivers one email through SES. Throttling surfaces as
// ErrRateLimited; rejected recipients surface as PermanentError.
func (a *EmailAdapter) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.FromIdentity),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(msg.CampaignID.String())},
			{Name: aws.String("queue_item_id"), Value: aws.String(msg.QueueItemID.String())},
		},
	}

	result, err := a.client.SendEmail(ctx, input)
	if err != nil {
		var tooMany *types.TooManyRequestsException
		if errors.As(err, &tooMany) {
			return nil, fmt.Errorf("ses send: %w", ErrRateLimited)
		}
		var rejected *types.MessageRejected
		if errors.As(err, &rejected) {
			return nil, &PermanentError{Reason: rejected.ErrorMessage()}
		}
		var badRequest *types.BadRequestException
		if errors.As(err, &badRequest) {
			return nil, &PermanentError{Reason: badRequest.ErrorMessage()}
		}
		return nil, fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}

	log.Printf("[EmailAdapter] Sent to %s (id: %s)", logger.RedactEmail(msg.To), messageID)

	return &SendResult{ProviderMessageID: messageID, SentAt: time.Now()}, nil
}
