package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
)

// ErrRateLimited is wrapped by adapters when the provider is throttling the
// sending account. The dispatcher stops processing further items for that
// account in the current run instead of burning through the due set.
var ErrRateLimited = errors.New("channel provider rate limited")

// PermanentError marks a dispatch failure that will never succeed on retry
// (invalid recipient, synchronous hard bounce). The dispatcher advances the
// prospect to a terminal status so the address is not attempted again.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent send failure: %s", e.Reason)
}

// IsPermanent reports whether err is a permanent dispatch failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Message is one rendered outbound message handed to a channel adapter.
// Subject is empty for channels without a subject line.
type Message struct {
	QueueItemID  uuid.UUID
	CampaignID   uuid.UUID
	ProspectID   uuid.UUID
	To           string
	Subject      string
	Body         string
	FromIdentity string
}

// SendResult is the provider's acknowledgment of an accepted message.
type SendResult struct {
	ProviderMessageID string
	SentAt            time.Time
}

// Adapter hides a specific provider's send API behind the generic channel
// contract. Implementations must respect ctx deadlines; the dispatcher
// wraps every call in an explicit timeout and treats expiry as a failure,
// never as an indeterminate state.
type Adapter interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg *Message) (*SendResult, error)
}
