package enums

import "fmt"

// AlertType identifies the three orthogonal alert conditions the scanner
// evaluates. An item can carry a stock alert and an expiry alert at once.
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
	AlertTypeExpiring   AlertType = "expiring"
)

var validAlertTypes = []AlertType{
	AlertTypeLowStock,
	AlertTypeOutOfStock,
	AlertTypeExpiring,
}

// String implements fmt.Stringer.
func (a AlertType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AlertType.
func (a AlertType) IsValid() bool {
	for _, candidate := range validAlertTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAlertType converts raw input into an AlertType.
func ParseAlertType(value string) (AlertType, error) {
	for _, candidate := range validAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert type %q", value)
}

// AlertPriority grades alert urgency.
type AlertPriority string

const (
	AlertPriorityLow    AlertPriority = "low"
	AlertPriorityMedium AlertPriority = "medium"
	AlertPriorityHigh   AlertPriority = "high"
)

var validAlertPriorities = []AlertPriority{
	AlertPriorityLow,
	AlertPriorityMedium,
	AlertPriorityHigh,
}

var rankByAlertPriority = map[AlertPriority]int{
	AlertPriorityLow:    0,
	AlertPriorityMedium: 1,
	AlertPriorityHigh:   2,
}

// String implements fmt.Stringer.
func (p AlertPriority) String() string {
	return string(p)
}

// IsValid reports whether the value is a known AlertPriority.
func (p AlertPriority) IsValid() bool {
	for _, candidate := range validAlertPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Rank returns the ordering rank of the priority (low lowest). Suppression
// lets a higher rank through even inside the suppression window.
func (p AlertPriority) Rank() int {
	return rankByAlertPriority[p]
}

// ParseAlertPriority converts raw input into an AlertPriority.
func ParseAlertPriority(value string) (AlertPriority, error) {
	for _, candidate := range validAlertPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid alert priority %q", value)
}
