package alerts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

type fakeSuppressionStore struct {
	data    map[string]string
	getErr  error
	setErr  error
	setTTLs map[string]time.Duration
}

func newFakeSuppressionStore() *fakeSuppressionStore {
	return &fakeSuppressionStore{
		data:    map[string]string{},
		setTTLs: map[string]time.Duration{},
	}
}

func (f *fakeSuppressionStore) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeSuppressionStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value.(string)
	f.setTTLs[key] = ttl
	return nil
}

func (f *fakeSuppressionStore) SuppressionKey(itemID, alertType string) string {
	return strings.Join([]string{"cs", "alert_suppression", itemID, alertType}, ":")
}

func testAlert(alertType enums.AlertType, priority enums.AlertPriority) Alert {
	return Alert{
		Type:     alertType,
		Priority: priority,
		ItemID:   uuid.MustParse("7d0dcf31-71fd-4f9f-9678-54a6a4ea1c9c"),
		ItemName: "Saline 0.9%",
		At:       time.Now().UTC(),
	}
}

func newTestSuppressor(store suppressionStore) Suppressor {
	logg := logger.New(logger.Options{ServiceName: "alerts-test", Output: io.Discard})
	return &redisSuppressor{store: store, window: DefaultSuppressionWindow, logg: logg}
}

func TestSuppressorMutesRepeatAlert(t *testing.T) {
	store := newFakeSuppressionStore()
	suppressor := newTestSuppressor(store)
	ctx := context.Background()

	alert := testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium)
	if !suppressor.ShouldDispatch(ctx, alert) {
		t.Fatalf("first alert must dispatch")
	}
	suppressor.MarkDispatched(ctx, alert)

	if suppressor.ShouldDispatch(ctx, alert) {
		t.Fatalf("repeat alert of equal priority must be suppressed")
	}
}

func TestSuppressorAllowsPriorityEscalation(t *testing.T) {
	store := newFakeSuppressionStore()
	suppressor := newTestSuppressor(store)
	ctx := context.Background()

	low := testAlert(enums.AlertTypeExpiring, enums.AlertPriorityLow)
	suppressor.MarkDispatched(ctx, low)

	if suppressor.ShouldDispatch(ctx, low) {
		t.Fatalf("same priority must stay suppressed")
	}

	high := testAlert(enums.AlertTypeExpiring, enums.AlertPriorityHigh)
	if !suppressor.ShouldDispatch(ctx, high) {
		t.Fatalf("escalated priority must pass the window")
	}
}

func TestSuppressionIsScopedPerAlertType(t *testing.T) {
	store := newFakeSuppressionStore()
	suppressor := newTestSuppressor(store)
	ctx := context.Background()

	suppressor.MarkDispatched(ctx, testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium))

	expiring := testAlert(enums.AlertTypeExpiring, enums.AlertPriorityMedium)
	if !suppressor.ShouldDispatch(ctx, expiring) {
		t.Fatalf("different alert type must not share suppression state")
	}
}

func TestSuppressorFailsOpenOnStoreError(t *testing.T) {
	store := newFakeSuppressionStore()
	store.getErr = errors.New("connection refused")
	suppressor := newTestSuppressor(store)

	alert := testAlert(enums.AlertTypeOutOfStock, enums.AlertPriorityHigh)
	if !suppressor.ShouldDispatch(context.Background(), alert) {
		t.Fatalf("store errors must not drop alerts")
	}
}

func TestMarkDispatchedUsesWindowTTL(t *testing.T) {
	store := newFakeSuppressionStore()
	suppressor := newTestSuppressor(store)
	ctx := context.Background()

	alert := testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium)
	suppressor.MarkDispatched(ctx, alert)

	key := store.SuppressionKey(alert.ItemID.String(), alert.Type.String())
	if store.setTTLs[key] != DefaultSuppressionWindow {
		t.Fatalf("expected window TTL, got %s", store.setTTLs[key])
	}
}
