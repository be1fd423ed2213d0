package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/internal/users"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
)

// Pusher is the realtime side of the fan-out. Satisfied by the realtime
// broadcaster.
type Pusher interface {
	PublishToUser(ctx context.Context, userID uuid.UUID, event realtime.Event) int
	PublishToItem(ctx context.Context, itemID uuid.UUID, event realtime.Event) int
}

// Dispatcher fans alerts out to every eligible recipient over the
// store-and-forward channel and the realtime push channel. Channel failures
// are isolated per recipient; the audit entry is written regardless.
type Dispatcher struct {
	users     users.Repository
	audit     AuditRepository
	publisher MessagePublisher
	pusher    Pusher
	logg      *logger.Logger
}

// NewDispatcher wires dispatcher dependencies.
func NewDispatcher(usersRepo users.Repository, audit AuditRepository, publisher MessagePublisher, pusher Pusher, logg *logger.Logger) (*Dispatcher, error) {
	if usersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if audit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "audit repository required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "message publisher required")
	}
	if pusher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "realtime pusher required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Dispatcher{
		users:     usersRepo,
		audit:     audit,
		publisher: publisher,
		pusher:    pusher,
		logg:      logg,
	}, nil
}

// Dispatch implements alerts.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, alert alerts.Alert) alerts.DeliveryReport {
	ctx = d.logg.WithItemID(ctx, alert.ItemID.String())
	report := alerts.DeliveryReport{Alert: alert}

	recipients, err := d.users.ListActiveByRoles(ctx, enums.InventoryManagerRoles)
	if err != nil {
		// Recipients unknown; the audit entry below still records the alert.
		d.logg.Error(ctx, "resolving alert recipients failed", err)
	}

	report.AuditLogged = d.writeAudit(ctx, alert, false, len(recipients))

	instanceID := uuid.New()
	pushEvent := realtime.StockAlertEvent{
		Type:     alert.Type,
		ItemID:   alert.ItemID,
		ItemName: alert.ItemName,
		Message:  alert.Message,
		Priority: alert.Priority,
		At:       alert.At,
	}

	for _, recipient := range recipients {
		outcome := alerts.RecipientOutcome{UserID: recipient.ID}

		message := AlertMessage{
			DedupKey:  fmt.Sprintf("%s:%s", instanceID, recipient.ID),
			UserID:    recipient.ID,
			ItemID:    alert.ItemID,
			Type:      enums.NotificationTypeForAlert(alert.Type),
			Title:     alertTitle(alert),
			Message:   alert.Message,
			Priority:  alert.Priority,
			CreatedAt: alert.At,
		}
		if err := d.publisher.Publish(ctx, message); err != nil {
			// Best effort: one recipient's failure never blocks the rest.
			outcome.MessageErr = err.Error()
			d.logg.Error(ctx, fmt.Sprintf("alert message delivery failed for user %s", recipient.ID), err)
		} else {
			outcome.MessageSent = true
		}

		outcome.PushSent = d.pusher.PublishToUser(ctx, recipient.ID, pushEvent) > 0

		report.Recipients = append(report.Recipients, outcome)
	}

	// Item-feed subscribers get the push once, independent of recipients.
	d.pusher.PublishToItem(ctx, alert.ItemID, pushEvent)

	return report
}

// RecordSuppressed implements alerts.Dispatcher. Suppressed alerts still
// leave an audit trace so the window's effect is visible afterwards.
func (d *Dispatcher) RecordSuppressed(ctx context.Context, alert alerts.Alert) error {
	if d.writeAudit(ctx, alert, true, 0) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeDependency, "writing suppressed alert audit entry failed")
}

func (d *Dispatcher) writeAudit(ctx context.Context, alert alerts.Alert, suppressed bool, recipients int) bool {
	entry := models.AlertLog{
		ID:         uuid.New(),
		ItemID:     alert.ItemID,
		Type:       alert.Type,
		Priority:   alert.Priority,
		Message:    alert.Message,
		Suppressed: suppressed,
		Recipients: recipients,
		CreatedAt:  alert.At,
	}
	if err := d.audit.Create(ctx, &entry); err != nil {
		d.logg.Error(ctx, "writing alert audit entry failed", err)
		return false
	}
	return true
}

func alertTitle(alert alerts.Alert) string {
	switch alert.Type {
	case enums.AlertTypeOutOfStock:
		return "Item out of stock"
	case enums.AlertTypeLowStock:
		return "Item low on stock"
	case enums.AlertTypeExpiring:
		return "Item expiring soon"
	default:
		return "Inventory alert"
	}
}
