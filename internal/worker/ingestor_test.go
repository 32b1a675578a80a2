package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/domain"
	"github.com/InnovareAI/Sam-Staging-Branch-sub033/internal/store"
)

type fakeReviewer struct {
	calls []string
}

func (f *fakeReviewer) CreateForReply(_ context.Context, _ *domain.QueueItem, prospect *domain.Prospect, replyText string) error {
	f.calls = append(f.calls, replyText)
	_ = prospect
	return nil
}

func newTestIngestor(t *testing.T) (*Ingestor, *fakeReviewer, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	reviewer := &fakeReviewer{}
	return NewIngestor(store.New(db), reviewer, nil), reviewer, mock, func() { db.Close() }
}

func queueItemColumns() []string {
	return []string{
		"id", "campaign_id", "prospect_id", "channel", "variant",
		"subject", "body", "scheduled_for", "status", "provider_message_id",
		"error_reason", "created_at", "sent_at",
	}
}

func queueItemRow(prospectID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(queueItemColumns()).AddRow(
		uuid.New(), uuid.New(), prospectID, "email", "A",
		"Quick question", "Hi Ada", time.Now(), "sent", "prov-123",
		nil, time.Now(), time.Now(),
	)
}

func expectEventLogged(mock sqlmock.Sqlmock) {
	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectOutcome(mock sqlmock.Sqlmock) {
	mock.ExpectExec("UPDATE webhook_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func emailEvent(kind domain.EventKind, replyText string) *domain.ChannelEvent {
	return &domain.ChannelEvent{
		Channel:           domain.ChannelEmail,
		Kind:              kind,
		ProviderMessageID: "prov-123",
		ReplyText:         replyText,
		OccurredAt:        time.Now(),
	}
}

func TestIngest_DeliveredAdvancesProspect(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))
	mock.ExpectExec("UPDATE prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventDelivered, "")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_DuplicateDeliveredIsIdempotent(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	// Already delivered: the transition is a no-op, no UPDATE issued.
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("delivered"))
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventDelivered, "")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_OutOfOrderOpenAfterReplyIsNoOp(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	// Prospect already replied; a late open event must not regress them.
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("replied"))
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventOpened, "")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_UnmatchedEventDropped(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").
		WillReturnRows(sqlmock.NewRows(queueItemColumns())) // no rows
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventDelivered, "")); err != nil {
		t.Fatalf("Ingest() should drop unmatched events without error, got: %v", err)
	}
}

func TestIngest_ProcessingFailureAfterRecordSucceeds(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	// The event is durably recorded, then the queue lookup blows up.
	// The failure lands in the event's outcome and the caller still
	// gets a success, so the provider does not redeliver.
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").
		WillReturnError(errors.New("connection reset by peer"))
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventDelivered, "")); err != nil {
		t.Fatalf("Ingest() after durable record should succeed, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_RecordFailurePropagates(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO webhook_events").
		WillReturnError(errors.New("disk full"))

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventDelivered, "")); err == nil {
		t.Fatal("Ingest() should fail when the event cannot be recorded")
	}
}

func TestIngest_UnknownKindTolerated(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	expectEventLogged(mock)
	expectOutcome(mock)

	ev := emailEvent(domain.EventKind("complaint"), "")
	if err := ing.Ingest(context.Background(), ev); err != nil {
		t.Fatalf("Ingest() should tolerate unknown kinds, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_BounceCancelsPendingItems(t *testing.T) {
	ing, _, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("sent"))
	mock.ExpectExec("UPDATE prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 2)) // two pendings cancelled
	expectOutcome(mock)

	if err := ing.Ingest(context.Background(), emailEvent(domain.EventBounced, "")); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_OptOutReplyCancelsAndAbsorbs(t *testing.T) {
	ing, reviewer, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("delivered"))
	mock.ExpectExec("UPDATE prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE queue_items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectOutcome(mock)

	ev := emailEvent(domain.EventReplied, "Please remove me from your list")
	if err := ing.Ingest(context.Background(), ev); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(reviewer.calls) != 0 {
		t.Errorf("opt-out reply opened %d review sessions, want 0", len(reviewer.calls))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIngest_ReplyOpensOneReviewSession(t *testing.T) {
	ing, reviewer, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("opened"))
	mock.ExpectExec("UPDATE prospects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "campaign_id", "first_name", "last_name",
			"company_name", "title", "email", "linkedin_urn", "status", "last_status_at",
		}).AddRow(prospectID, uuid.New(), "Ada", "Lovelace", "Initech", "VP Eng",
			"ada@corp.example", "", "replied", time.Now()))
	expectOutcome(mock)

	ev := emailEvent(domain.EventReplied, "Sounds interesting, tell me more")
	if err := ing.Ingest(context.Background(), ev); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(reviewer.calls) != 1 {
		t.Fatalf("reviewer called %d times, want 1", len(reviewer.calls))
	}
	if reviewer.calls[0] != "Sounds interesting, tell me more" {
		t.Errorf("reviewer got %q", reviewer.calls[0])
	}
}

func TestIngest_DuplicateReplyOpensNoSecondSession(t *testing.T) {
	ing, reviewer, mock, cleanup := newTestIngestor(t)
	defer cleanup()

	prospectID := uuid.New()
	expectEventLogged(mock)
	mock.ExpectQuery("FROM queue_items").WillReturnRows(queueItemRow(prospectID))
	// Already replied: the advance is a no-op and no session is opened.
	mock.ExpectQuery("SELECT status FROM prospects").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("replied"))
	expectOutcome(mock)

	ev := emailEvent(domain.EventReplied, "Sounds interesting, tell me more")
	if err := ing.Ingest(context.Background(), ev); err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if len(reviewer.calls) != 0 {
		t.Errorf("reviewer called %d times, want 0", len(reviewer.calls))
	}
}

func TestKeywordClassifier(t *testing.T) {
	c := KeywordClassifier{}
	tests := []struct {
		reply string
		want  bool
	}{
		{"Please UNSUBSCRIBE me", true},
		{"remove me from this list", true},
		{"Not interested, thanks", true},
		{"Do not contact me again", true},
		{"Sounds great, let's talk", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.IsOptOut(tt.reply); got != tt.want {
			t.Errorf("IsOptOut(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}
