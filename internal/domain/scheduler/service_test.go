package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/galleycloud/ticket-chat-api/internal/domain/directory"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/jobs"
)

type fakeObligationRepo struct {
	byContact map[string]*Obligation
}

func newFakeObligationRepo() *fakeObligationRepo {
	return &fakeObligationRepo{byContact: make(map[string]*Obligation)}
}

func (f *fakeObligationRepo) Insert(ctx context.Context, o *Obligation) error {
	if _, ok := f.byContact[o.ContactAddress]; !ok {
		f.byContact[o.ContactAddress] = o
	}
	return nil
}

func (f *fakeObligationRepo) IncrementByContact(ctx context.Context, contactAddress string) (bool, error) {
	o, ok := f.byContact[contactAddress]
	if !ok {
		return false, nil
	}
	o.UnreadCount++
	return true, nil
}

func (f *fakeObligationRepo) GetByContact(ctx context.Context, contactAddress string) (*Obligation, error) {
	return f.byContact[contactAddress], nil
}

func (f *fakeObligationRepo) DecrementByRecipient(ctx context.Context, recipientID uuid.UUID) (bool, error) {
	for _, o := range f.byContact {
		if o.RecipientUserID == recipientID && o.UnreadCount > 1 {
			o.UnreadCount--
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeObligationRepo) DeleteByRecipient(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var removed int64
	for addr, o := range f.byContact {
		if o.RecipientUserID == recipientID {
			delete(f.byContact, addr)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeObligationRepo) DeleteByContact(ctx context.Context, contactAddress string) (int64, error) {
	if _, ok := f.byContact[contactAddress]; ok {
		delete(f.byContact, contactAddress)
		return 1, nil
	}
	return 0, nil
}

type fakeJob struct {
	name    string
	raw     json.RawMessage
	decoded map[string]interface{}
}

type fakeJobRunner struct {
	handlers map[string]jobs.Handler
	pending  []*fakeJob
}

func newFakeJobRunner() *fakeJobRunner {
	return &fakeJobRunner{handlers: make(map[string]jobs.Handler)}
}

func (f *fakeJobRunner) Define(name string, h jobs.Handler) {
	f.handlers[name] = h
}

func (f *fakeJobRunner) Schedule(ctx context.Context, name string, runAt time.Time, payload interface{}) (uuid.UUID, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return uuid.Nil, err
	}
	f.pending = append(f.pending, &fakeJob{name: name, raw: raw, decoded: decoded})
	return uuid.New(), nil
}

func (f *fakeJobRunner) Cancel(ctx context.Context, name string, match map[string]interface{}) (int64, error) {
	kept := []*fakeJob{}
	var removed int64
	for _, job := range f.pending {
		if job.name == name && payloadMatches(job.decoded, match) {
			removed++
			continue
		}
		kept = append(kept, job)
	}
	f.pending = kept
	return removed, nil
}

// fire runs every pending job through its handler, as the poller would
func (f *fakeJobRunner) fire(ctx context.Context, t *testing.T) {
	t.Helper()
	pending := f.pending
	f.pending = nil
	for _, job := range pending {
		h, ok := f.handlers[job.name]
		if !ok {
			t.Fatalf("no handler defined for job %s", job.name)
		}
		if err := h(ctx, job.raw); err != nil {
			t.Fatalf("job %s failed: %v", job.name, err)
		}
	}
}

func payloadMatches(payload, match map[string]interface{}) bool {
	for k, v := range match {
		if fmt.Sprint(payload[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

type sentEmail struct {
	to          string
	unreadCount int
}

type fakeEmailSender struct {
	sent []sentEmail
}

func (f *fakeEmailSender) SendUnreadMessages(ctx context.Context, to, toName string, unreadCount int, chatURL string) error {
	f.sent = append(f.sent, sentEmail{to: to, unreadCount: unreadCount})
	return nil
}

type fakePrefDirectory struct {
	preferences map[uuid.UUID]*directory.NotificationPreference
	tokens      map[uuid.UUID][]string
}

func newFakePrefDirectory() *fakePrefDirectory {
	return &fakePrefDirectory{
		preferences: make(map[uuid.UUID]*directory.NotificationPreference),
		tokens:      make(map[uuid.UUID][]string),
	}
}

func (f *fakePrefDirectory) GetCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	return nil, nil
}

func (f *fakePrefDirectory) GetMerchantStaff(ctx context.Context, id uuid.UUID) (*directory.MerchantStaff, error) {
	return nil, nil
}

func (f *fakePrefDirectory) GetAdminStaff(ctx context.Context, id uuid.UUID) (*directory.AdminStaff, error) {
	return nil, nil
}

func (f *fakePrefDirectory) ListSupportRoles(ctx context.Context, merchantID uuid.UUID) ([]*directory.Role, error) {
	return nil, nil
}

func (f *fakePrefDirectory) ListMerchantStaffByRolesAndOutlet(ctx context.Context, roleIDs []uuid.UUID, outletID uuid.UUID) ([]*directory.MerchantStaff, error) {
	return nil, nil
}

func (f *fakePrefDirectory) ListAdminStaffByRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*directory.AdminStaff, error) {
	return nil, nil
}

func (f *fakePrefDirectory) GetPreference(ctx context.Context, userID uuid.UUID) (*directory.NotificationPreference, error) {
	return f.preferences[userID], nil
}

func (f *fakePrefDirectory) UpsertPreference(ctx context.Context, pref *directory.NotificationPreference) error {
	f.preferences[pref.UserID] = pref
	return nil
}

func (f *fakePrefDirectory) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return f.tokens[userID], nil
}

func (f *fakePrefDirectory) SaveDeviceToken(ctx context.Context, token *directory.DeviceToken) error {
	return nil
}

func newTestScheduler() (*Service, *fakeObligationRepo, *fakeJobRunner, *fakeEmailSender, *fakePrefDirectory) {
	repo := newFakeObligationRepo()
	runner := newFakeJobRunner()
	email := &fakeEmailSender{}
	dir := newFakePrefDirectory()
	svc := NewService(repo, runner, dir, email, nil, time.Minute, "https://support.example.com")
	return svc, repo, runner, email, dir
}

func TestObligationBatchingByContactAddress(t *testing.T) {
	svc, repo, runner, _, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, uuid.New(), "r@example.com", "Riley"); err != nil {
		t.Fatalf("first ScheduleUnread failed: %v", err)
	}
	if err := svc.ScheduleUnread(ctx, recipient, uuid.New(), "r@example.com", "Riley"); err != nil {
		t.Fatalf("second ScheduleUnread failed: %v", err)
	}

	if len(repo.byContact) != 1 {
		t.Fatalf("expected one obligation row, got %d", len(repo.byContact))
	}
	if got := repo.byContact["r@example.com"].UnreadCount; got != 2 {
		t.Fatalf("expected unread count 2, got %d", got)
	}
	if len(runner.pending) != 1 {
		t.Fatalf("expected a single outstanding job, got %d", len(runner.pending))
	}
}

func TestCancellationBeforeFireSuppressesEmail(t *testing.T) {
	svc, _, runner, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	messageID := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, messageID, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	svc.CancelOnRead(ctx, recipient, messageID)

	if len(runner.pending) != 0 {
		t.Fatalf("job should have been cancelled, %d still pending", len(runner.pending))
	}

	// Even a job that escaped cancellation must no-op once the row is
	// gone
	payload, _ := json.Marshal(unreadJobPayload{
		RecipientUserID: recipient,
		MessageID:       messageID,
		ContactAddress:  "r@example.com",
	})
	if err := svc.handleUnreadJob(ctx, payload); err != nil {
		t.Fatalf("escaped job should no-op, got %v", err)
	}
	if len(email.sent) != 0 {
		t.Fatalf("no email should be sent after cancellation, got %d", len(email.sent))
	}
}

func TestFiredReminderCarriesCurrentUnreadCount(t *testing.T) {
	svc, _, runner, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.ScheduleUnread(ctx, recipient, uuid.New(), "r@example.com", "Riley"); err != nil {
			t.Fatalf("ScheduleUnread failed: %v", err)
		}
	}

	runner.fire(ctx, t)

	if len(email.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(email.sent))
	}
	if email.sent[0].unreadCount != 3 {
		t.Fatalf("expected unread count 3 at fire time, got %d", email.sent[0].unreadCount)
	}
}

func TestDoubleFireSendsOneEmail(t *testing.T) {
	svc, _, _, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	messageID := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, messageID, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	payload, _ := json.Marshal(unreadJobPayload{
		RecipientUserID: recipient,
		MessageID:       messageID,
		ContactAddress:  "r@example.com",
	})

	if err := svc.handleUnreadJob(ctx, payload); err != nil {
		t.Fatalf("first fire failed: %v", err)
	}
	if err := svc.handleUnreadJob(ctx, payload); err != nil {
		t.Fatalf("second fire should no-op, got %v", err)
	}

	if len(email.sent) != 1 {
		t.Fatalf("at-least-once delivery must still send exactly one email, got %d", len(email.sent))
	}
}

func TestPreferenceDisablesUnreadEmail(t *testing.T) {
	svc, repo, runner, _, dir := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()

	dir.preferences[recipient] = &directory.NotificationPreference{
		UserID:       recipient,
		SupportEmail: false,
		SupportPush:  true,
	}

	if err := svc.ScheduleUnread(ctx, recipient, uuid.New(), "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	if len(repo.byContact) != 0 {
		t.Errorf("no obligation should exist when email is disabled")
	}
	if len(runner.pending) != 0 {
		t.Errorf("no job should be scheduled when email is disabled")
	}
}

func TestReadingLatestOfBatchKeepsEarlierReminder(t *testing.T) {
	svc, _, runner, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	first := uuid.New()
	second := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, first, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}
	if err := svc.ScheduleUnread(ctx, recipient, second, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	// Reading the message the outstanding job happens to reference must
	// not kill the reminder for the still-unread first message
	svc.CancelOnRead(ctx, recipient, second)

	if len(runner.pending) != 1 {
		t.Fatalf("reminder job must survive a partial read, %d pending", len(runner.pending))
	}

	runner.fire(ctx, t)

	if len(email.sent) != 1 {
		t.Fatalf("expected one reminder for the remaining unread message, got %d", len(email.sent))
	}
	if email.sent[0].unreadCount != 1 {
		t.Fatalf("expected unread count 1 after one read, got %d", email.sent[0].unreadCount)
	}
}

func TestReadingFirstOfBatchKeepsLatestReminder(t *testing.T) {
	svc, repo, runner, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	first := uuid.New()
	second := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, first, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}
	if err := svc.ScheduleUnread(ctx, recipient, second, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	// The batched row is keyed by the first message, reading it must
	// not drop the whole batch while the second is unread
	svc.CancelOnRead(ctx, recipient, first)

	if len(repo.byContact) != 1 {
		t.Fatalf("obligation row must survive a partial read")
	}
	if got := repo.byContact["r@example.com"].UnreadCount; got != 1 {
		t.Fatalf("expected unread count 1 after one read, got %d", got)
	}
	if len(runner.pending) != 1 {
		t.Fatalf("reminder job must survive a partial read, %d pending", len(runner.pending))
	}

	runner.fire(ctx, t)

	if len(email.sent) != 1 || email.sent[0].unreadCount != 1 {
		t.Fatalf("expected one reminder with count 1, got %+v", email.sent)
	}
}

func TestReadingEveryBatchedMessageCancelsReminder(t *testing.T) {
	svc, repo, runner, email, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	first := uuid.New()
	second := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, first, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}
	if err := svc.ScheduleUnread(ctx, recipient, second, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	svc.CancelOnRead(ctx, recipient, first)
	svc.CancelOnRead(ctx, recipient, second)

	if len(repo.byContact) != 0 {
		t.Fatalf("reading every message must clear the obligation row")
	}
	if len(runner.pending) != 0 {
		t.Fatalf("reading every message must cancel the job, %d pending", len(runner.pending))
	}

	runner.fire(ctx, t)
	if len(email.sent) != 0 {
		t.Fatalf("no reminder should be sent after a full read, got %d", len(email.sent))
	}
}

func TestRescheduleRestartsDelayWindow(t *testing.T) {
	svc, _, runner, _, _ := newTestScheduler()
	ctx := context.Background()
	recipient := uuid.New()
	first := uuid.New()
	second := uuid.New()

	if err := svc.ScheduleUnread(ctx, recipient, first, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}
	if err := svc.ScheduleUnread(ctx, recipient, second, "r@example.com", "Riley"); err != nil {
		t.Fatalf("ScheduleUnread failed: %v", err)
	}

	if len(runner.pending) != 1 {
		t.Fatalf("expected one outstanding job, got %d", len(runner.pending))
	}
	if got := fmt.Sprint(runner.pending[0].decoded["message_id"]); got != second.String() {
		t.Fatalf("outstanding job should track the latest message, got %s", got)
	}
}
