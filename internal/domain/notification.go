package domain

import "time"

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationPaymentReceived  NotificationType = "PAYMENT_RECEIVED"
	NotificationPaymentRefunded  NotificationType = "PAYMENT_REFUNDED"
	NotificationRatingReceived   NotificationType = "RATING_RECEIVED"
)

// Notification is a request to tell a user about an event. Delivery is
// best effort.
type Notification struct {
	Type        NotificationType `json:"type"`
	RecipientID string           `json:"recipient_id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Data        map[string]any   `json:"data,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}
