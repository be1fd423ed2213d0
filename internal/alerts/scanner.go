package alerts

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/pkg/db/models"
	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/clinicstock-backend/pkg/errors"
)

const (
	// DefaultExpiryWindowDays is how far ahead the expiring predicate looks.
	DefaultExpiryWindowDays = 30

	expiryHighDays   = 7
	expiryMediumDays = 14

	scanBatchSize = 500
)

// Scanner evaluates every active item against the alert predicates.
type Scanner struct {
	items            items.Repository
	expiryWindowDays int
	now              func() time.Time
}

// NewScanner wires scanner dependencies.
func NewScanner(itemsRepo items.Repository, expiryWindowDays int) (*Scanner, error) {
	if itemsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "items repository required")
	}
	if expiryWindowDays <= 0 {
		expiryWindowDays = DefaultExpiryWindowDays
	}
	return &Scanner{
		items:            itemsRepo,
		expiryWindowDays: expiryWindowDays,
		now:              func() time.Time { return time.Now().UTC() },
	}, nil
}

// Scan walks all active items in batches and collects every alert that holds.
func (s *Scanner) Scan(ctx context.Context) ([]Alert, error) {
	now := s.now()
	var out []Alert
	after := uuid.Nil
	for {
		batch, err := s.items.ListActiveBatch(ctx, after, scanBatchSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan inventory items")
		}
		if len(batch) == 0 {
			return out, nil
		}
		for _, item := range batch {
			out = append(out, s.Evaluate(item, now)...)
		}
		after = batch[len(batch)-1].ID
	}
}

// Evaluate checks one item against the three alert predicates. Stock and
// expiry alerts are orthogonal; an item can carry one of each per pass.
func (s *Scanner) Evaluate(item models.InventoryItem, now time.Time) []Alert {
	var out []Alert

	switch {
	case item.Stock == 0:
		out = append(out, Alert{
			Type:         enums.AlertTypeOutOfStock,
			Priority:     enums.AlertPriorityHigh,
			ItemID:       item.ID,
			ItemName:     item.Name,
			Message:      fmt.Sprintf("%s is out of stock", item.Name),
			CurrentStock: item.Stock,
			MinStock:     item.MinStock,
			At:           now,
		})
	case item.Stock <= item.MinStock:
		out = append(out, Alert{
			Type:         enums.AlertTypeLowStock,
			Priority:     enums.AlertPriorityMedium,
			ItemID:       item.ID,
			ItemName:     item.Name,
			Message:      fmt.Sprintf("%s is low on stock (%d left, minimum %d)", item.Name, item.Stock, item.MinStock),
			CurrentStock: item.Stock,
			MinStock:     item.MinStock,
			At:           now,
		})
	}

	if item.ExpiryDate != nil && item.Stock > 0 {
		days := daysUntil(*item.ExpiryDate, now)
		if days <= s.expiryWindowDays {
			message := fmt.Sprintf("%s expires in %d days", item.Name, days)
			if days <= 0 {
				// Past the expiry date with units still on the shelf.
				message = fmt.Sprintf("%s has expired with %d units still in stock", item.Name, item.Stock)
			}
			out = append(out, Alert{
				Type:            enums.AlertTypeExpiring,
				Priority:        expiryPriority(days),
				ItemID:          item.ID,
				ItemName:        item.Name,
				Message:         message,
				CurrentStock:    item.Stock,
				MinStock:        item.MinStock,
				DaysUntilExpiry: days,
				At:              now,
			})
		}
	}

	return out
}

// daysUntil rounds partial days up so an expiry 4.2 days away reads as 5.
func daysUntil(expiry, now time.Time) int {
	return int(math.Ceil(expiry.Sub(now).Hours() / 24))
}

func expiryPriority(days int) enums.AlertPriority {
	switch {
	case days <= expiryHighDays:
		return enums.AlertPriorityHigh
	case days <= expiryMediumDays:
		return enums.AlertPriorityMedium
	default:
		return enums.AlertPriorityLow
	}
}
