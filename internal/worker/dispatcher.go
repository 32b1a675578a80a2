package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/lease"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

// RunReport summarizes one dispatcher pass over one sending account.
type RunReport struct {
	Account     string `json:"account"`
	Claimed     int    `json:"claimed"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
	RateLimited bool   `json:"rate_limited"`
}

// Dispatcher drains due queue items for one sending account per run.
// Each run acquires the account's send lease, claims a batch, and
// records a terminal outcome per item before exiting. It holds no
// state between runs; the queue is the only source of truth.
type Dispatcher struct {
	stores      *store.Stores
	db          *sql.DB
	redis       *redis.Client
	adapters    map[domain.Channel]Adapter
	renderer    *Renderer
	workerID    string
	batchSize   int
	sendTimeout time.Duration
	leaseTTL    time.Duration
}

// NewDispatcher wires a dispatcher. redisClient may be nil; the send
// lease then falls back to PostgreSQL advisory locks.
func NewDispatcher(stores *store.Stores, db *sql.DB, redisClient *redis.Client,
	adapters []Adapter, batchSize int, sendTimeout, leaseTTL time.Duration) *Dispatcher {
	byChannel := make(map[domain.Channel]Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	if leaseTTL <= 0 {
		leaseTTL = 5 * time.Minute
	}
	return &Dispatcher{
		stores:      stores,
		db:          db,
		redis:       redisClient,
		adapters:    byChannel,
		renderer:    NewRenderer(),
		workerID:    uuid.New().String(),
		batchSize:   batchSize,
		sendTimeout: sendTimeout,
		leaseTTL:    leaseTTL,
	}
}

// RunOnce processes one batch of due items for one sending account.
// When the lease is held elsewhere the run is a no-op, not an error;
// the other holder is doing the work.
func (d *Dispatcher) RunOnce(ctx context.Context, account string) (*RunReport, error) {
	report := &RunReport{Account: account}

	l := lease.ForAccount(d.redis, d.db, account, d.leaseTTL)
	acquired, err := l.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire send lease for %s: %w", account, err)
	}
	if !acquired {
		log.Printf("[Dispatcher] Account %s: lease held elsewhere, skipping run", account)
		return report, nil
	}
	defer func() {
		if err := l.Release(context.Background()); err != nil {
			log.Printf("[Dispatcher] Account %s: lease release failed: %v", account, err)
		}
	}()

	items, err := d.stores.Queue.ClaimDue(ctx, d.workerID, account, d.batchSize)
	if err != nil {
		return report, fmt.Errorf("claim due items for %s: %w", account, err)
	}
	report.Claimed = len(items)

	for _, due := range items {
		if ctx.Err() != nil {
			break
		}
		if err := d.dispatch(ctx, &due, report); err != nil {
			if errors.Is(err, ErrRateLimited) {
				// The provider told us to back off. Unsent items stay
				// pending and the next run picks them up.
				report.RateLimited = true
				log.Printf("[Dispatcher] Account %s: rate limited after %d sends, stopping run", account, report.Sent)
				break
			}
			// Transient per-item failures are recorded and must not
			// sink the rest of the batch.
			log.Printf("[Dispatcher] Account %s: item %s failed: %v", account, due.Item.ID, err)
		}
	}

	log.Printf("[Dispatcher] Account %s: claimed %d, sent %d, failed %d, rate_limited %v",
		account, report.Claimed, report.Sent, report.Failed, report.RateLimited)
	return report, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, due *store.DueItem, report *RunReport) error {
	item := &due.Item

	adapter, ok := d.adapters[item.Channel]
	if !ok {
		report.Failed++
		reason := fmt.Sprintf("no adapter configured for channel %s", item.Channel)
		if err := d.stores.Queue.MarkFailed(ctx, item.ID, reason); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		return nil
	}

	fields := due.Prospect.MergeFields()
	subject, err := d.renderer.Render(item.Subject, fields)
	if err != nil {
		return d.recordPermanent(ctx, due, report, fmt.Sprintf("render subject: %v", err))
	}
	body, err := d.renderer.Render(item.Body, fields)
	if err != nil {
		return d.recordPermanent(ctx, due, report, fmt.Sprintf("render body: %v", err))
	}

	msg := &Message{
		QueueItemID:  item.ID,
		CampaignID:   item.CampaignID,
		ProspectID:   item.ProspectID,
		To:           due.Prospect.ChannelIdentifier(item.Channel),
		Subject:      subject,
		Body:         body,
		FromIdentity: due.FromIdentity,
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	result, err := adapter.Send(sendCtx, msg)
	cancel()

	switch {
	case err == nil:
		if err := d.stores.Queue.MarkSent(ctx, item.ID, result.ProviderMessageID, body); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		if _, err := d.stores.Prospects.Advance(ctx, item.ProspectID, domain.ProspectSent); err != nil {
			log.Printf("[Dispatcher] Prospect %s: advance to sent failed: %v", item.ProspectID, err)
		}
		report.Sent++
		return nil

	case errors.Is(err, ErrRateLimited):
		return err

	case IsPermanent(err):
		var perm *PermanentError
		errors.As(err, &perm)
		return d.recordPermanent(ctx, due, report, perm.Reason)

	default:
		// Transient (timeout, 5xx, network). The item is marked failed
		// and waits for an explicit requeue; there is no automatic retry.
		report.Failed++
		if markErr := d.stores.Queue.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
			return fmt.Errorf("mark failed: %w", markErr)
		}
		return err
	}
}

// recordPermanent marks the item failed and moves the prospect to the
// absorbing failed state so nothing further is scheduled for them.
func (d *Dispatcher) recordPermanent(ctx context.Context, due *store.DueItem, report *RunReport, reason string) error {
	report.Failed++
	if err := d.stores.Queue.MarkFailed(ctx, due.Item.ID, reason); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if _, err := d.stores.Prospects.Advance(ctx, due.Item.ProspectID, domain.ProspectFailed); err != nil {
		log.Printf("[Dispatcher] Prospect %s: advance to failed failed: %v", due.Item.ProspectID, err)
	}
	return nil
}
