package api

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/approval"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/compliance"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/pkg/httputil"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/worker"
)

// Handlers holds the collaborators behind the HTTP surface.
type Handlers struct {
	db         *sql.DB
	stores     *store.Stores
	scheduler  *worker.Scheduler
	dispatcher *worker.Dispatcher
	ingestor   *worker.Ingestor
	gate       *approval.Gate
	window     compliance.Window

	// scheduleBatch bounds how many prospects one schedule call loads.
	scheduleBatch int
}

// NewHandlers creates the handler set.
func NewHandlers(db *sql.DB, stores *store.Stores, scheduler *worker.Scheduler,
	dispatcher *worker.Dispatcher, ingestor *worker.Ingestor, gate *approval.Gate,
	window compliance.Window) *Handlers {
	return &Handlers{
		db:            db,
		stores:        stores,
		scheduler:     scheduler,
		dispatcher:    dispatcher,
		ingestor:      ingestor,
		gate:          gate,
		window:        window,
		scheduleBatch: 500,
	}
}

// HealthCheck reports liveness and database reachability.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		httputil.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	status["database"] = "ok"
	if counts, err := h.stores.Events.CountByOutcome(ctx, 1); err == nil {
		status["webhook_events_24h"] = counts
	}
	httputil.OK(w, status)
}

// CronDispatch runs one dispatcher pass. With ?account= it covers just
// that sending account, otherwise every active one. Accounts are
// independent; one account's error does not stop the others.
func (h *Handlers) CronDispatch(w http.ResponseWriter, r *http.Request) {
	var accounts []string
	if account := r.URL.Query().Get("account"); account != "" {
		accounts = []string{account}
	} else {
		var err error
		accounts, err = h.stores.Campaigns.ActiveSendingAccounts(r.Context())
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
	}

	reports := make([]*worker.RunReport, 0, len(accounts))
	for _, account := range accounts {
		report, err := h.dispatcher.RunOnce(r.Context(), account)
		if err != nil {
			log.Printf("[API] Dispatch for account %s: %v", account, err)
		}
		reports = append(reports, report)
	}
	httputil.OK(w, map[string]interface{}{"accounts": len(accounts), "reports": reports})
}

// CronExpireApprovals sweeps review sessions past their deadline.
func (h *Handlers) CronExpireApprovals(w http.ResponseWriter, r *http.Request) {
	expired, err := h.gate.ExpireStale(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"expired": expired})
}

// ScheduleCampaign plans send times for the campaign's unscheduled
// prospects within today's remaining cap.
func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseID(w, r)
	if !ok {
		return
	}

	campaign, err := h.stores.Campaigns.Get(r.Context(), campaignID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if campaign.Status != domain.CampaignActive {
		httputil.Conflict(w, "campaign is not active")
		return
	}

	prospects, err := h.stores.Prospects.PendingForCampaign(r.Context(), campaignID, h.scheduleBatch)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	result, err := h.scheduler.Schedule(r.Context(), campaign, prospects, h.window, time.Now())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.OK(w, result)
}

// PauseCampaign stops future claims without touching queued items;
// they simply stop matching the active-campaign claim filter.
func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.setCampaignStatus(w, r, domain.CampaignPaused, domain.CanPause)
}

// ResumeCampaign reactivates a paused campaign. Items that came due
// while paused are claimed on the next dispatch.
func (h *Handlers) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	h.setCampaignStatus(w, r, domain.CampaignActive, domain.CanResume)
}

// CancelCampaign completes the campaign and cancels all its pending
// queue items. Sent history is untouched.
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := parseID(w, r)
	if !ok {
		return
	}
	campaign, err := h.stores.Campaigns.Get(r.Context(), campaignID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if allowed, reason := domain.CanCancel(campaign.Status); !allowed {
		httputil.Conflict(w, reason)
		return
	}

	if err := h.stores.Campaigns.SetStatus(r.Context(), campaignID, domain.CampaignCompleted); err != nil {
		httputil.InternalError(w, err)
		return
	}
	cancelled, err := h.stores.Queue.CancelPendingForCampaign(r.Context(), campaignID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"status": domain.CampaignCompleted, "cancelled_items": cancelled})
}

func (h *Handlers) setCampaignStatus(w http.ResponseWriter, r *http.Request,
	next domain.CampaignStatus, check func(domain.CampaignStatus) (bool, string)) {
	campaignID, ok := parseID(w, r)
	if !ok {
		return
	}
	campaign, err := h.stores.Campaigns.Get(r.Context(), campaignID)
	if errors.Is(err, store.ErrNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if allowed, reason := check(campaign.Status); !allowed {
		httputil.Conflict(w, reason)
		return
	}
	if err := h.stores.Campaigns.SetStatus(r.Context(), campaignID, next); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]domain.CampaignStatus{"status": next})
}

type requeueRequest struct {
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// RequeueItem puts a failed queue item back in flight. Only failed
// items requeue; retrying is an operator decision, never automatic.
func (h *Handlers) RequeueItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req requeueRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}

	at := compliance.NextCompliantInstant(time.Now(), h.window)
	if req.ScheduledFor != nil {
		at = compliance.NextCompliantInstant(*req.ScheduledFor, h.window)
	}

	err := h.stores.Queue.Requeue(r.Context(), itemID, at)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.Conflict(w, "item is not in failed state")
	case errors.Is(err, store.ErrDuplicatePending):
		httputil.Conflict(w, err.Error())
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, map[string]interface{}{"scheduled_for": at})
	}
}

// ListApprovals returns open review sessions oldest-first.
func (h *Handlers) ListApprovals(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.stores.Approvals.ListPending(r.Context(), r.URL.Query().Get("assignee"), 100)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.ApprovalSession{}
	}
	httputil.OK(w, sessions)
}

type decisionRequest struct {
	Decision    domain.ApprovalStatus `json:"decision"`
	DecidedBy   string                `json:"decided_by"`
	EditedReply string                `json:"edited_reply,omitempty"`
}

// DecideApproval applies a reviewer decision to a session.
func (h *Handlers) DecideApproval(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	session, err := h.gate.Decide(r.Context(), sessionID, req.Decision, req.DecidedBy, req.EditedReply)
	switch {
	case errors.Is(err, approval.ErrInvalidDecision):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, approval.ErrAlreadyDecided):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, store.ErrNotFound):
		httputil.NotFound(w, "approval session not found")
	case err != nil:
		httputil.InternalError(w, err)
	default:
		httputil.OK(w, session)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
