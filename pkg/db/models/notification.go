package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users. Rows are
// written by the notify worker consuming the alerts topic; DedupKey keeps the
// consumer idempotent across redeliveries.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	ItemID    *uuid.UUID             `gorm:"column:item_id;type:uuid"`
	DedupKey  *string                `gorm:"column:dedup_key;type:text;uniqueIndex"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()"`
}

// IsRead reports whether the notification has been acknowledged.
func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
