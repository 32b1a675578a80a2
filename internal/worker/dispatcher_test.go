package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

// fakeAdapter scripts per-recipient outcomes for dispatcher tests.
type fakeAdapter struct {
	channel  domain.Channel
	errs     map[string]error // recipient -> error, nil means success
	sent     []string
	sendSeen int
}

func (f *fakeAdapter) Channel() domain.Channel { return f.channel }

func (f *fakeAdapter) Send(_ context.Context, msg *Message) (*SendResult, error) {
	f.sendSeen++
	if err, ok := f.errs[msg.To]; ok && err != nil {
		return nil, err
	}
	f.sent = append(f.sent, msg.To)
	return &SendResult{ProviderMessageID: "prov-" + msg.To, SentAt: time.Now()}, nil
}

func dueItemColumns() []string {
	return []string{
		"id", "campaign_id", "prospect_id", "channel", "variant",
		"subject", "body", "scheduled_for",
		"p_id", "p_campaign_id", "first_name", "last_name",
		"company_name", "title", "email", "linkedin_urn", "p_status",
		"from_identity",
	}
}

func addDueRow(rows *sqlmock.Rows, campaignID uuid.UUID, email string) (itemID, prospectID uuid.UUID) {
	itemID = uuid.New()
	prospectID = uuid.New()
	rows.AddRow(
		itemID, campaignID, prospectID, "email", "",
		"Quick question", "Hi {first_name}", time.Now(),
		prospectID, campaignID, "Ada", "Lovelace",
		"Initech", "VP Eng", email, "", "scheduled",
		"jordan@acme.example",
	)
	return itemID, prospectID
}

func expectLeaseAcquired(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"acquired"}).AddRow(true))
}

func expectLeaseReleased(mock sqlmock.Sqlmock) {
	mock.ExpectExec("pg_advisory_unlock").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectAdvance(mock sqlmock.Sqlmock, current string) {
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(current))
	mock.ExpectExec("UPDATE prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func newTestDispatcher(t *testing.T, adapter Adapter) (*Dispatcher, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	d := NewDispatcher(store.New(db), db, nil, []Adapter{adapter}, 10, 5*time.Second, time.Minute)
	return d, mock, func() { db.Close() }
}

func TestRunOnce_SendsClaimedItems(t *testing.T) {
	adapter := &fakeAdapter{channel: domain.ChannelEmail}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	campaignID := uuid.New()
	rows := sqlmock.NewRows(dueItemColumns())
	addDueRow(rows, campaignID, "ada@corp.example")
	addDueRow(rows, campaignID, "ben@corp.example")

	expectLeaseAcquired(mock)
	mock.ExpectQuery("WITH claimed").WillReturnRows(rows)
	for i := 0; i < 2; i++ {
		mock.ExpectExec("UPDATE queue_items").
			WillReturnResult(sqlmock.NewResult(0, 1)) // mark sent
		expectAdvance(mock, "scheduled")
	}
	expectLeaseReleased(mock)

	report, err := d.RunOnce(context.Background(), "outbound@acme.example")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if report.Claimed != 2 || report.Sent != 2 || report.Failed != 0 {
		t.Errorf("report = %+v, want claimed=2 sent=2 failed=0", report)
	}
	if len(adapter.sent) != 2 {
		t.Errorf("adapter sent %d messages, want 2", len(adapter.sent))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunOnce_LeaseHeldElsewhereIsNoOp(t *testing.T) {
	adapter := &fakeAdapter{channel: domain.ChannelEmail}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	mock.ExpectQuery("pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"acquired"}).AddRow(false))

	report, err := d.RunOnce(context.Background(), "outbound@acme.example")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if report.Claimed != 0 || adapter.sendSeen != 0 {
		t.Errorf("lease-held run should do nothing, got %+v, sends=%d", report, adapter.sendSeen)
	}
}

func TestRunOnce_RateLimitStopsRun(t *testing.T) {
	adapter := &fakeAdapter{
		channel: domain.ChannelEmail,
		errs:    map[string]error{"ada@corp.example": fmt.Errorf("provider: %w", ErrRateLimited)},
	}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	campaignID := uuid.New()
	rows := sqlmock.NewRows(dueItemColumns())
	addDueRow(rows, campaignID, "ada@corp.example")
	addDueRow(rows, campaignID, "ben@corp.example")

	expectLeaseAcquired(mock)
	mock.ExpectQuery("WITH claimed").WillReturnRows(rows)
	// No outcome writes: rate-limited items stay pending for the next run.
	expectLeaseReleased(mock)

	report, err := d.RunOnce(context.Background(), "outbound@acme.example")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if !report.RateLimited {
		t.Error("report.RateLimited = false, want true")
	}
	if report.Sent != 0 || report.Failed != 0 {
		t.Errorf("report = %+v, want no outcomes recorded", report)
	}
	if adapter.sendSeen != 1 {
		t.Errorf("adapter saw %d sends, want 1 (run stops at the rate limit)", adapter.sendSeen)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunOnce_PermanentFailureIsolatedFromBatch(t *testing.T) {
	adapter := &fakeAdapter{
		channel: domain.ChannelEmail,
		errs:    map[string]error{"ada@corp.example": &PermanentError{Reason: "recipient rejected"}},
	}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	campaignID := uuid.New()
	rows := sqlmock.NewRows(dueItemColumns())
	addDueRow(rows, campaignID, "ada@corp.example")
	addDueRow(rows, campaignID, "ben@corp.example")

	expectLeaseAcquired(mock)
	mock.ExpectQuery("WITH claimed").WillReturnRows(rows)
	// First item: mark failed + prospect to absorbing failed state.
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAdvance(mock, "scheduled")
	// Second item sends normally.
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAdvance(mock, "scheduled")
	expectLeaseReleased(mock)

	report, err := d.RunOnce(context.Background(), "outbound@acme.example")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if report.Sent != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want sent=1 failed=1", report)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunOnce_TransientFailureMarksFailedWithoutRetry(t *testing.T) {
	adapter := &fakeAdapter{
		channel: domain.ChannelEmail,
		errs:    map[string]error{"ada@corp.example": errors.New("connect timeout")},
	}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	rows := sqlmock.NewRows(dueItemColumns())
	addDueRow(rows, uuid.New(), "ada@corp.example")

	expectLeaseAcquired(mock)
	mock.ExpectQuery("WITH claimed").WillReturnRows(rows)
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 1)) // mark failed
	expectLeaseReleased(mock)

	report, err := d.RunOnce(context.Background(), "outbound@acme.example")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if report.Failed != 1 || report.Sent != 0 {
		t.Errorf("report = %+v, want failed=1 sent=0", report)
	}
	if adapter.sendSeen != 1 {
		t.Errorf("adapter saw %d sends, want 1 (no automatic retry)", adapter.sendSeen)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunOnce_MissingAdapterFailsItem(t *testing.T) {
	// Email-only deployment claims a linkedin item: the item fails with
	// a recorded reason instead of sitting pending forever.
	adapter := &fakeAdapter{channel: domain.ChannelEmail}
	d, mock, cleanup := newTestDispatcher(t, adapter)
	defer cleanup()

	rows := sqlmock.NewRows(dueItemColumns())
	itemID := uuid.New()
	prospectID := uuid.New()
	rows.AddRow(
		itemID, uuid.New(), prospectID, "linkedin", "",
		"", "Hi {first_name}", time.Now(),
		prospectID, uuid.New(), "Ada", "Lovelace",
		"Initech", "VP Eng", "", "urn:li:person:abc", "scheduled",
		"seat-42",
	)

	expectLeaseAcquired(mock)
	mock.ExpectQuery("WITH claimed").WillReturnRows(rows)
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 1)) // mark failed
	expectLeaseReleased(mock)

	report, err := d.RunOnce(context.Background(), "seat-42")
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("report = %+v, want failed=1", report)
	}
	if adapter.sendSeen != 0 {
		t.Errorf("adapter saw %d sends, want 0", adapter.sendSeen)
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(&PermanentError{Reason: "rejected"}) {
		t.Error("IsPermanent(PermanentError) = false")
	}
	if !IsPermanent(fmt.Errorf("wrap: %w", &PermanentError{Reason: "rejected"})) {
		t.Error("IsPermanent(wrapped PermanentError) = false")
	}
	if IsPermanent(errors.New("timeout")) {
		t.Error("IsPermanent(plain error) = true")
	}
	if IsPermanent(ErrRateLimited) {
		t.Error("IsPermanent(ErrRateLimited) = true")
	}
}
