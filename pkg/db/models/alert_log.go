package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// AlertLog is the audit trail of every alert the dispatcher handled,
// suppressed or delivered alike.
type AlertLog struct {
	ID         uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID     uuid.UUID           `gorm:"column:item_id;type:uuid;not null;index"`
	Type       enums.AlertType     `gorm:"type:alert_type;not null"`
	Priority   enums.AlertPriority `gorm:"type:alert_priority;not null"`
	Message    string              `gorm:"type:text;not null"`
	Suppressed bool                `gorm:"column:suppressed;not null;default:false"`
	Recipients int                 `gorm:"column:recipients;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}
