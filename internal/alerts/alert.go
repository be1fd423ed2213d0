// Package alerts derives inventory alerts from item state. Alerts are
// transient values; every sweep re-derives them so there is no stale alert
// state to reconcile.
package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// Alert is one alert condition holding for one item at evaluation time.
type Alert struct {
	Type            enums.AlertType     `json:"type"`
	Priority        enums.AlertPriority `json:"priority"`
	ItemID          uuid.UUID           `json:"itemId"`
	ItemName        string              `json:"itemName"`
	Message         string              `json:"message"`
	CurrentStock    int                 `json:"currentStock"`
	MinStock        int                 `json:"minStock"`
	DaysUntilExpiry int                 `json:"daysUntilExpiry,omitempty"`
	At              time.Time           `json:"at"`
}

// RecipientOutcome records what each channel did for one recipient.
type RecipientOutcome struct {
	UserID      uuid.UUID `json:"userId"`
	MessageSent bool      `json:"messageSent"`
	MessageErr  string    `json:"messageErr,omitempty"`
	PushSent    bool      `json:"pushSent"`
}

// DeliveryReport is the dispatcher's per-alert outcome summary.
type DeliveryReport struct {
	Alert       Alert              `json:"alert"`
	Recipients  []RecipientOutcome `json:"recipients"`
	AuditLogged bool               `json:"auditLogged"`
}

// Dispatcher fans one alert out to its recipients. Implemented by the
// dispatch package; defined here so the engine does not depend on it.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert Alert) DeliveryReport
	RecordSuppressed(ctx context.Context, alert Alert) error
}
