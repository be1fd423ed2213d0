package enums

import "fmt"

// InventoryEventType tags realtime inventory feed messages.
type InventoryEventType string

const (
	InventoryEventItemCreated  InventoryEventType = "item_created"
	InventoryEventItemUpdated  InventoryEventType = "item_updated"
	InventoryEventItemDeleted  InventoryEventType = "item_deleted"
	InventoryEventStockChanged InventoryEventType = "stock_changed"
)

var validInventoryEventTypes = []InventoryEventType{
	InventoryEventItemCreated,
	InventoryEventItemUpdated,
	InventoryEventItemDeleted,
	InventoryEventStockChanged,
}

// IsValid reports whether the value is a known InventoryEventType.
func (e InventoryEventType) IsValid() bool {
	for _, candidate := range validInventoryEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseInventoryEventType converts raw input into an InventoryEventType.
func ParseInventoryEventType(value string) (InventoryEventType, error) {
	for _, candidate := range validInventoryEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory event type %q", value)
}

// PurchaseOrderEventType tags realtime purchase-order feed messages. The
// purchase-order domain itself lives outside this service; only the event
// shape passes through the broadcaster.
type PurchaseOrderEventType string

const (
	PurchaseOrderEventCreated   PurchaseOrderEventType = "created"
	PurchaseOrderEventUpdated   PurchaseOrderEventType = "updated"
	PurchaseOrderEventReceived  PurchaseOrderEventType = "received"
	PurchaseOrderEventCancelled PurchaseOrderEventType = "cancelled"
)

var validPurchaseOrderEventTypes = []PurchaseOrderEventType{
	PurchaseOrderEventCreated,
	PurchaseOrderEventUpdated,
	PurchaseOrderEventReceived,
	PurchaseOrderEventCancelled,
}

// IsValid reports whether the value is a known PurchaseOrderEventType.
func (e PurchaseOrderEventType) IsValid() bool {
	for _, candidate := range validPurchaseOrderEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParsePurchaseOrderEventType converts raw input into a PurchaseOrderEventType.
func ParsePurchaseOrderEventType(value string) (PurchaseOrderEventType, error) {
	for _, candidate := range validPurchaseOrderEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order event type %q", value)
}
