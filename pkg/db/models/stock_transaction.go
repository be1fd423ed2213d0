package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// StockTransaction is one append-only ledger entry. Quantity is always
// positive; direction lives in Type. PreviousStock and NewStock snapshot the
// item around the mutation so the history replays without recomputation.
type StockTransaction struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID        uuid.UUID             `gorm:"column:item_id;type:uuid;not null;index"`
	Type          enums.TransactionType `gorm:"type:transaction_type;not null"`
	Quantity      int                   `gorm:"column:quantity;not null"`
	PreviousStock int                   `gorm:"column:previous_stock;not null"`
	NewStock      int                   `gorm:"column:new_stock;not null"`
	Reason        string                `gorm:"type:text;not null"`
	Reference     *string               `gorm:"type:text"`
	Notes         *string               `gorm:"type:text"`
	ActorID       uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}
