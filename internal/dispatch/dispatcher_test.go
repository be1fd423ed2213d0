package dispatch

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

type fakeUsersRepo struct {
	users   []models.User
	listErr error
}

func (f *fakeUsersRepo) GetByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUsersRepo) ListActiveByRoles(context.Context, []enums.UserRole) ([]models.User, error) {
	return f.users, f.listErr
}

type fakeAuditRepo struct {
	entries   []models.AlertLog
	createErr error
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AlertLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	sent    []AlertMessage
	failFor map[uuid.UUID]error
}

func (f *fakePublisher) Publish(_ context.Context, message AlertMessage) error {
	if err, ok := f.failFor[message.UserID]; ok {
		return err
	}
	f.sent = append(f.sent, message)
	return nil
}

type fakePusher struct {
	userEvents map[uuid.UUID][]realtime.Event
	itemEvents map[uuid.UUID][]realtime.Event
	offline    map[uuid.UUID]bool
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		userEvents: map[uuid.UUID][]realtime.Event{},
		itemEvents: map[uuid.UUID][]realtime.Event{},
		offline:    map[uuid.UUID]bool{},
	}
}

func (f *fakePusher) PublishToUser(_ context.Context, userID uuid.UUID, event realtime.Event) int {
	if f.offline[userID] {
		return 0
	}
	f.userEvents[userID] = append(f.userEvents[userID], event)
	return 1
}

func (f *fakePusher) PublishToItem(_ context.Context, itemID uuid.UUID, event realtime.Event) int {
	f.itemEvents[itemID] = append(f.itemEvents[itemID], event)
	return len(f.itemEvents[itemID])
}

func manager(role enums.UserRole) models.User {
	return models.User{ID: uuid.New(), Role: role, IsActive: true}
}

func newTestDispatcher(t *testing.T, usersRepo *fakeUsersRepo, audit *fakeAuditRepo, publisher *fakePublisher, pusher *fakePusher) *Dispatcher {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "dispatch-test", Output: io.Discard})
	dispatcher, err := NewDispatcher(usersRepo, audit, publisher, pusher, logg)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return dispatcher
}

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		Type:         enums.AlertTypeLowStock,
		Priority:     enums.AlertPriorityMedium,
		ItemID:       uuid.New(),
		ItemName:     "Insulin pens",
		Message:      "Insulin pens is low on stock (4 left, minimum 10)",
		CurrentStock: 4,
		MinStock:     10,
		At:           time.Now().UTC(),
	}
}

func TestDispatchSurvivesSingleRecipientFailure(t *testing.T) {
	recipients := []models.User{
		manager(enums.UserRoleAdmin),
		manager(enums.UserRoleManager),
		manager(enums.UserRolePharmacist),
	}
	publisher := &fakePublisher{failFor: map[uuid.UUID]error{
		recipients[1].ID: errors.New("smtp relay unavailable"),
	}}
	pusher := newFakePusher()
	audit := &fakeAuditRepo{}
	dispatcher := newTestDispatcher(t, &fakeUsersRepo{users: recipients}, audit, publisher, pusher)

	alert := sampleAlert()
	report := dispatcher.Dispatch(context.Background(), alert)

	if len(report.Recipients) != 3 {
		t.Fatalf("expected three recipient outcomes, got %d", len(report.Recipients))
	}
	if len(publisher.sent) != 2 {
		t.Fatalf("expected two delivered messages, got %d", len(publisher.sent))
	}
	for i, outcome := range report.Recipients {
		wantSent := i != 1
		if outcome.MessageSent != wantSent {
			t.Fatalf("recipient %d message outcome mismatch: %+v", i, outcome)
		}
		if !outcome.PushSent {
			t.Fatalf("recipient %d should have received the push", i)
		}
	}
	if report.Recipients[1].MessageErr == "" {
		t.Fatalf("failed recipient must carry the channel error")
	}

	if !report.AuditLogged || len(audit.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Suppressed || entry.Recipients != 3 || entry.Type != alert.Type {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}

	if len(pusher.itemEvents[alert.ItemID]) != 1 {
		t.Fatalf("item room must receive the push exactly once")
	}
}

func TestDispatchOfflineRecipientIsNoop(t *testing.T) {
	recipients := []models.User{manager(enums.UserRoleAdmin), manager(enums.UserRolePharmacist)}
	pusher := newFakePusher()
	pusher.offline[recipients[0].ID] = true
	publisher := &fakePublisher{}
	dispatcher := newTestDispatcher(t, &fakeUsersRepo{users: recipients}, &fakeAuditRepo{}, publisher, pusher)

	report := dispatcher.Dispatch(context.Background(), sampleAlert())

	if report.Recipients[0].PushSent {
		t.Fatalf("offline recipient must be a push no-op")
	}
	if !report.Recipients[0].MessageSent {
		t.Fatalf("offline recipient still gets the store-and-forward message")
	}
	if !report.Recipients[1].PushSent {
		t.Fatalf("online recipient must receive the push")
	}
}

func TestDispatchWritesAuditEvenWithoutRecipients(t *testing.T) {
	audit := &fakeAuditRepo{}
	dispatcher := newTestDispatcher(t, &fakeUsersRepo{listErr: errors.New("db down")}, audit, &fakePublisher{}, newFakePusher())

	report := dispatcher.Dispatch(context.Background(), sampleAlert())

	if !report.AuditLogged || len(audit.entries) != 1 {
		t.Fatalf("audit entry must be written even when recipient resolution fails")
	}
	if len(report.Recipients) != 0 {
		t.Fatalf("expected no recipient outcomes, got %d", len(report.Recipients))
	}
}

func TestRecordSuppressedWritesAuditRow(t *testing.T) {
	audit := &fakeAuditRepo{}
	dispatcher := newTestDispatcher(t, &fakeUsersRepo{}, audit, &fakePublisher{}, newFakePusher())

	if err := dispatcher.RecordSuppressed(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("record suppressed: %v", err)
	}
	if len(audit.entries) != 1 || !audit.entries[0].Suppressed {
		t.Fatalf("expected one suppressed audit entry, got %+v", audit.entries)
	}
	if audit.entries[0].Recipients != 0 {
		t.Fatalf("suppressed entries carry no recipients")
	}
}

func TestDedupKeysAreUniquePerRecipient(t *testing.T) {
	recipients := []models.User{manager(enums.UserRoleAdmin), manager(enums.UserRoleManager)}
	publisher := &fakePublisher{}
	dispatcher := newTestDispatcher(t, &fakeUsersRepo{users: recipients}, &fakeAuditRepo{}, publisher, newFakePusher())

	dispatcher.Dispatch(context.Background(), sampleAlert())

	if len(publisher.sent) != 2 {
		t.Fatalf("expected two messages, got %d", len(publisher.sent))
	}
	if publisher.sent[0].DedupKey == publisher.sent[1].DedupKey {
		t.Fatalf("dedup keys must differ per recipient")
	}
}
