package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

type testItemsService struct {
	item *models.InventoryItem
	err  error
}

func (s *testItemsService) Get(context.Context, uuid.UUID) (*models.InventoryItem, error) {
	return s.item, s.err
}

func (s *testItemsService) List(context.Context, items.ListParams) (*items.ListResult, error) {
	return &items.ListResult{}, s.err
}

func (s *testItemsService) Create(context.Context, items.CreateParams) (*models.InventoryItem, error) {
	return s.item, s.err
}

func (s *testItemsService) Update(context.Context, uuid.UUID, items.UpdateParams) (*models.InventoryItem, error) {
	return s.item, s.err
}

func (s *testItemsService) Delete(context.Context, uuid.UUID) error { return s.err }

func catalogItem() *models.InventoryItem {
	return &models.InventoryItem{
		ID:        uuid.New(),
		SKU:       "MED-AMX-500",
		Name:      "Amoxicillin 500mg",
		Category:  enums.ItemCategoryMedicine,
		Unit:      enums.ItemUnitBox,
		MinStock:  10,
		MaxStock:  200,
		Status:    enums.ItemStatusOutOfStock,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func createItemBody() string {
	return `{"sku":"MED-AMX-500","name":"Amoxicillin 500mg","category":"medicine","unit":"box","minStock":10,"maxStock":200,"purchasePrice":"12.50","sellingPrice":"18.00"}`
}

func TestCreateItemBroadcastsCreatedEvent(t *testing.T) {
	item := catalogItem()
	registry := realtime.NewRegistry()
	broadcaster, err := realtime.NewBroadcaster(registry, testLogg())
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}
	conn := registry.Register(uuid.New())
	if err := registry.Join(conn.ID, realtime.ItemRoom(item.ID)); err != nil {
		t.Fatalf("join item room: %v", err)
	}

	handler := CreateItem(&testItemsService{item: item}, broadcaster, testLogg())
	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodPost, "/api/v1/inventory/items", strings.NewReader(createItemBody())))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	select {
	case frame := <-conn.Events():
		if frame.Name != "inventory_update" {
			t.Fatalf("unexpected frame name %q", frame.Name)
		}
		var event realtime.InventoryUpdateEvent
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if event.Type != enums.InventoryEventItemCreated {
			t.Fatalf("expected item_created event, got %s", event.Type)
		}
		if event.ItemID == nil || *event.ItemID != item.ID {
			t.Fatalf("event must carry the new item id, got %+v", event.ItemID)
		}
	default:
		t.Fatal("expected a created event on the item room")
	}
}

func TestCreateItemWithoutBroadcasterStillCreates(t *testing.T) {
	handler := CreateItem(&testItemsService{item: catalogItem()}, nil, testLogg())
	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodPost, "/api/v1/inventory/items", strings.NewReader(createItemBody())))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateItemRejectsUnknownFields(t *testing.T) {
	handler := CreateItem(&testItemsService{item: catalogItem()}, nil, testLogg())
	resp := httptest.NewRecorder()
	body := `{"sku":"MED-AMX-500","name":"Amoxicillin 500mg","category":"medicine","unit":"box","stock":50}`
	handler(resp, httptest.NewRequest(http.MethodPost, "/api/v1/inventory/items", strings.NewReader(body)))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("stock must not be settable at create, got %d", resp.Code)
	}
}
