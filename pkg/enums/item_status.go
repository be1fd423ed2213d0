package enums

import "fmt"

// ItemStatus maps to the item_status enum in Postgres. It is always derived by
// the status classifier; no other code path assigns it.
type ItemStatus string

const (
	ItemStatusActive     ItemStatus = "active"
	ItemStatusLowStock   ItemStatus = "low_stock"
	ItemStatusOutOfStock ItemStatus = "out_of_stock"
	ItemStatusExpired    ItemStatus = "expired"
)

var validItemStatuses = []ItemStatus{
	ItemStatusActive,
	ItemStatusLowStock,
	ItemStatusOutOfStock,
	ItemStatusExpired,
}

// severityByItemStatus orders statuses from healthy to worst. Used to decide
// whether a transition is a downgrade worth surfacing immediately.
var severityByItemStatus = map[ItemStatus]int{
	ItemStatusActive:     0,
	ItemStatusLowStock:   1,
	ItemStatusOutOfStock: 2,
	ItemStatusExpired:    3,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Severity returns the ordering rank of the status (active lowest).
func (s ItemStatus) Severity() int {
	return severityByItemStatus[s]
}

// IsDowngradeFrom reports whether s is worse than the previous status.
func (s ItemStatus) IsDowngradeFrom(prev ItemStatus) bool {
	return s.Severity() > prev.Severity()
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
