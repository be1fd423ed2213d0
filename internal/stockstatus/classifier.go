// Package stockstatus holds the single source of truth for deriving an
// inventory item's status. No other code path may compute or assign status.
package stockstatus

import (
	"time"

	"github.com/dmarroquin/clinicstock-backend/pkg/enums"
)

// Classify derives the item status from stock levels and the optional expiry
// date. First match wins: zero stock, then expiry, then the low-stock
// threshold. Pure and deterministic; now is injected so callers and tests
// control the clock.
func Classify(currentStock, minStock int, expiryDate *time.Time, now time.Time) enums.ItemStatus {
	if currentStock == 0 {
		return enums.ItemStatusOutOfStock
	}
	if expiryDate != nil && !expiryDate.After(now) {
		return enums.ItemStatusExpired
	}
	if currentStock <= minStock {
		return enums.ItemStatusLowStock
	}
	return enums.ItemStatusActive
}
