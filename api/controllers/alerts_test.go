package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
)

type scannerFunc func(ctx context.Context) ([]alerts.Alert, error)

func (f scannerFunc) Scan(ctx context.Context) ([]alerts.Alert, error) { return f(ctx) }

func testAlert(alertType enums.AlertType, priority enums.AlertPriority) alerts.Alert {
	return alerts.Alert{
		Type:     alertType,
		Priority: priority,
		ItemID:   uuid.New(),
		ItemName: "Ibuprofen 400mg",
		Message:  "stock check required",
		At:       time.Now().UTC(),
	}
}

func decodeAlertFeed(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return envelope.Data
}

func TestListAlertsGroupsByTypeWithCounts(t *testing.T) {
	scanner := scannerFunc(func(context.Context) ([]alerts.Alert, error) {
		return []alerts.Alert{
			testAlert(enums.AlertTypeOutOfStock, enums.AlertPriorityHigh),
			testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium),
			testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium),
			testAlert(enums.AlertTypeExpiring, enums.AlertPriorityLow),
		}, nil
	})

	resp := httptest.NewRecorder()
	ListAlerts(scanner, testLogg())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/alerts", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	data := decodeAlertFeed(t, resp)
	counts, ok := data["counts"].(map[string]any)
	if !ok {
		t.Fatalf("counts missing from response: %v", data)
	}
	if counts["lowStock"] != float64(2) || counts["outOfStock"] != float64(1) ||
		counts["expiring"] != float64(1) || counts["total"] != float64(4) {
		t.Fatalf("unexpected counts: %v", counts)
	}

	grouped, ok := data["alerts"].(map[string]any)
	if !ok {
		t.Fatalf("alerts missing from response: %v", data)
	}
	if low, _ := grouped["low_stock"].([]any); len(low) != 2 {
		t.Fatalf("expected 2 low_stock alerts, got %v", grouped["low_stock"])
	}
}

func TestListAlertsEmptyScanYieldsZeroCounts(t *testing.T) {
	scanner := scannerFunc(func(context.Context) ([]alerts.Alert, error) { return nil, nil })

	resp := httptest.NewRecorder()
	ListAlerts(scanner, testLogg())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/alerts", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	data := decodeAlertFeed(t, resp)
	counts := data["counts"].(map[string]any)
	if counts["total"] != float64(0) {
		t.Fatalf("expected zero total, got %v", counts["total"])
	}
	grouped := data["alerts"].(map[string]any)
	if out, _ := grouped["out_of_stock"].([]any); len(out) != 0 {
		t.Fatalf("expected empty out_of_stock group, got %v", grouped["out_of_stock"])
	}
}

func TestListAlertsPagesWithLimitAndOffset(t *testing.T) {
	scanner := scannerFunc(func(context.Context) ([]alerts.Alert, error) {
		return []alerts.Alert{
			testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium),
			testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium),
			testAlert(enums.AlertTypeLowStock, enums.AlertPriorityMedium),
		}, nil
	})

	resp := httptest.NewRecorder()
	ListAlerts(scanner, testLogg())(resp, httptest.NewRequest(http.MethodGet, "/x?limit=1&offset=2", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	data := decodeAlertFeed(t, resp)
	grouped := data["alerts"].(map[string]any)
	if low, _ := grouped["low_stock"].([]any); len(low) != 1 {
		t.Fatalf("expected 1 alert on the page, got %v", grouped["low_stock"])
	}
	// Counts are computed before paging.
	counts := data["counts"].(map[string]any)
	if counts["total"] != float64(3) {
		t.Fatalf("expected total=3, got %v", counts["total"])
	}
}

func TestListAlertsPropagatesScanFailure(t *testing.T) {
	scanner := scannerFunc(func(context.Context) ([]alerts.Alert, error) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "item store unreachable")
	})

	resp := httptest.NewRecorder()
	ListAlerts(scanner, testLogg())(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
