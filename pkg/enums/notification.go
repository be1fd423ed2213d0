package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeStockAlert    NotificationType = "stock_alert"
	NotificationTypeExpiryAlert   NotificationType = "expiry_alert"
	NotificationTypePurchaseOrder NotificationType = "purchase_order"
	NotificationTypeSystem        NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeStockAlert,
	NotificationTypeExpiryAlert,
	NotificationTypePurchaseOrder,
	NotificationTypeSystem,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationTypeForAlert maps an alert condition to the notification type
// used on the store-and-forward channel.
func NotificationTypeForAlert(alertType AlertType) NotificationType {
	if alertType == AlertTypeExpiring {
		return NotificationTypeExpiryAlert
	}
	return NotificationTypeStockAlert
}
