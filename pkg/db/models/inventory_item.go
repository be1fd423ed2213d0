package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// InventoryItem is the canonical stock record for one clinic item. Stock and
// Status only change through the ledger; Version backs the optimistic lock on
// every mutation.
type InventoryItem struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string             `gorm:"type:text;not null"`
	SKU           string             `gorm:"column:sku;type:text;not null;uniqueIndex"`
	Category      enums.ItemCategory `gorm:"type:item_category;not null"`
	Unit          enums.ItemUnit     `gorm:"type:item_unit;not null;default:'piece'"`
	Stock         int                `gorm:"column:stock;not null;default:0"`
	MinStock      int                `gorm:"column:min_stock;not null;default:0"`
	MaxStock      int                `gorm:"column:max_stock;not null;default:0"`
	Status        enums.ItemStatus   `gorm:"type:item_status;not null;default:'active'"`
	PurchasePrice decimal.Decimal    `gorm:"column:purchase_price;type:numeric(12,2);not null;default:0"`
	SellingPrice  decimal.Decimal    `gorm:"column:selling_price;type:numeric(12,2);not null;default:0"`
	ExpiryDate    *time.Time         `gorm:"column:expiry_date;type:date"`
	SupplierID    *uuid.UUID         `gorm:"column:supplier_id;type:uuid"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	Version       int                `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// IsExpired reports whether the item's expiry date is on or before now.
func (i InventoryItem) IsExpired(now time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	return !i.ExpiryDate.After(now)
}
