package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/api/middleware"
	"github.com/dmarroquin/clinicstock-backend/internal/ledger"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

type testLedgerService struct {
	applyFn func(ctx context.Context, params ledger.ApplyParams) (*ledger.ApplyResult, error)
	listFn  func(ctx context.Context, params ledger.ListTransactionsParams) (*ledger.TransactionsResult, error)
}

func (s *testLedgerService) Apply(ctx context.Context, params ledger.ApplyParams) (*ledger.ApplyResult, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, params)
	}
	return &ledger.ApplyResult{}, nil
}

func (s *testLedgerService) ListTransactions(ctx context.Context, params ledger.ListTransactionsParams) (*ledger.TransactionsResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &ledger.TransactionsResult{}, nil
}

func (s *testLedgerService) RegisterListener(ledger.ChangeListener) {}

func testLogg() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func applyRequest(t *testing.T, itemID uuid.UUID, actorID uuid.UUID, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/items/"+itemID.String()+"/stock-transactions", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), actorID.String()))
	return addRouteParam(req, "itemID", itemID.String())
}

func TestApplyStockTransactionSuccess(t *testing.T) {
	itemID := uuid.New()
	actorID := uuid.New()
	var got ledger.ApplyParams
	svc := &testLedgerService{
		applyFn: func(_ context.Context, params ledger.ApplyParams) (*ledger.ApplyResult, error) {
			got = params
			return &ledger.ApplyResult{
				Item:        models.InventoryItem{ID: itemID, Stock: 5, Status: enums.ItemStatusLowStock},
				Transaction: models.StockTransaction{ItemID: itemID, Type: enums.TransactionTypeOut, Quantity: 45},
			}, nil
		},
	}

	body := `{"type":"OUT","quantity":45,"reason":"Morning ward rounds"}`
	resp := httptest.NewRecorder()
	ApplyStockTransaction(svc, testLogg())(resp, applyRequest(t, itemID, actorID, body))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.ItemID != itemID || got.ActorID != actorID {
		t.Fatalf("identifiers not threaded through: %+v", got)
	}
	if got.Type != enums.TransactionTypeOut || got.Quantity != 45 {
		t.Fatalf("payload not threaded through: %+v", got)
	}

	var envelope struct {
		Data ledger.ApplyResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Item.Status != enums.ItemStatusLowStock {
		t.Fatalf("expected committed item state in response, got %+v", envelope.Data.Item)
	}
}

func TestApplyStockTransactionRejectsUnknownType(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"type":"TRANSFER","quantity":1,"reason":"moving stock"}`
	ApplyStockTransaction(&testLedgerService{}, testLogg())(resp, applyRequest(t, uuid.New(), uuid.New(), body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestApplyStockTransactionRejectsUnknownFields(t *testing.T) {
	resp := httptest.NewRecorder()
	body := `{"type":"IN","quantity":1,"reason":"restock","price":10}`
	ApplyStockTransaction(&testLedgerService{}, testLogg())(resp, applyRequest(t, uuid.New(), uuid.New(), body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestApplyStockTransactionRequiresActor(t *testing.T) {
	itemID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"type":"IN","quantity":1,"reason":"restock"}`))
	req = addRouteParam(req, "itemID", itemID.String())

	resp := httptest.NewRecorder()
	ApplyStockTransaction(&testLedgerService{}, testLogg())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestApplyStockTransactionInsufficientStock(t *testing.T) {
	svc := &testLedgerService{
		applyFn: func(context.Context, ledger.ApplyParams) (*ledger.ApplyResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{"currentStock": 5, "requested": 45})
		},
	}

	resp := httptest.NewRecorder()
	body := `{"type":"OUT","quantity":45,"reason":"ward rounds"}`
	ApplyStockTransaction(svc, testLogg())(resp, applyRequest(t, uuid.New(), uuid.New(), body))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Details["currentStock"] != float64(5) {
		t.Fatalf("details must surface current stock, got %v", envelope.Error.Details)
	}
}

func TestApplyStockTransactionConflictAfterRetries(t *testing.T) {
	svc := &testLedgerService{
		applyFn: func(context.Context, ledger.ApplyParams) (*ledger.ApplyResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "item busy, retry the request")
		},
	}

	resp := httptest.NewRecorder()
	body := `{"type":"IN","quantity":10,"reason":"weekly restock"}`
	ApplyStockTransaction(svc, testLogg())(resp, applyRequest(t, uuid.New(), uuid.New(), body))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestListStockTransactionsThreadsCursor(t *testing.T) {
	itemID := uuid.New()
	var got ledger.ListTransactionsParams
	svc := &testLedgerService{
		listFn: func(_ context.Context, params ledger.ListTransactionsParams) (*ledger.TransactionsResult, error) {
			got = params
			return &ledger.TransactionsResult{Cursor: "next"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/x?limit=10&cursor=abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "itemID", itemID.String())

	resp := httptest.NewRecorder()
	ListStockTransactions(svc, testLogg())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got.ItemID != itemID || got.Limit != 10 || got.Cursor != "abc" {
		t.Fatalf("params not threaded: %+v", got)
	}
}
