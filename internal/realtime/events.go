// Package realtime holds the in-memory subscription registry and the event
// shapes pushed to live connections. Nothing here is persisted; state lives
// and dies with the process.
package realtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// Event is the closed set of realtime message shapes. Each variant names its
// wire event and carries an explicit field set; there are no free-form maps.
type Event interface {
	EventName() string
}

// InventoryUpdateEvent announces item lifecycle and stock changes.
type InventoryUpdateEvent struct {
	Type    enums.InventoryEventType `json:"type"`
	ItemID  *uuid.UUID               `json:"itemId,omitempty"`
	Item    *models.InventoryItem    `json:"item,omitempty"`
	Message string                   `json:"message"`
	At      time.Time                `json:"at"`
}

func (InventoryUpdateEvent) EventName() string { return "inventory_update" }

// StockAlertEvent is the realtime rendering of a dispatched alert.
type StockAlertEvent struct {
	Type     enums.AlertType     `json:"type"`
	ItemID   uuid.UUID           `json:"itemId"`
	ItemName string              `json:"itemName"`
	Message  string              `json:"message"`
	Priority enums.AlertPriority `json:"priority"`
	At       time.Time           `json:"at"`
}

func (StockAlertEvent) EventName() string { return "stock_alert" }

// PurchaseOrderEvent mirrors purchase-order activity into the feed. The
// purchase-order domain lives elsewhere; only the event shape passes through.
type PurchaseOrderEvent struct {
	Type        enums.PurchaseOrderEventType `json:"type"`
	OrderID     uuid.UUID                    `json:"orderId"`
	OrderNumber string                       `json:"orderNumber"`
	Message     string                       `json:"message"`
	At          time.Time                    `json:"at"`
}

func (PurchaseOrderEvent) EventName() string { return "purchase_order_update" }
