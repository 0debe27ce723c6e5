package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
)

// NotificationPublisher delivers notifications to an external channel.
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// LogPublisher writes notifications to the log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the notification.
func (p *LogPublisher) Publish(_ context.Context, n domain.Notification) error {
	p.logger.WithFields(logrus.Fields{
		"type":      n.Type,
		"recipient": n.RecipientID,
		"title":     n.Title,
	}).Info(n.Message)
	return nil
}

const notificationTimeout = 5 * time.Second

// NotificationService handles notification delivery. Sending never blocks
// or fails the operation that triggered it.
type NotificationService struct {
	publisher NotificationPublisher
	logger    *logrus.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher NotificationPublisher, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// NotifyBookingConfirmed tells the driver a seat was booked on their ride.
func (s *NotificationService) NotifyBookingConfirmed(ctx context.Context, booking *domain.Booking, ride *domain.Ride) {
	s.send(ctx, domain.Notification{
		Type:        domain.NotificationBookingConfirmed,
		RecipientID: ride.DriverID,
		Title:       "New Booking",
		Message:     fmt.Sprintf("%d seat(s) booked on your ride from %s to %s", booking.SeatsBooked, ride.Origin, ride.Destination),
		Data: map[string]any{
			"booking_id": booking.ID,
			"ride_id":    ride.ID,
			"rider_id":   booking.RiderID,
			"seats":      booking.SeatsBooked,
		},
	})
}

// NotifyBookingCancelled tells the other party that a booking was cancelled.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking, ride *domain.Ride, cancelledBy string) {
	recipientID := ride.DriverID
	message := "A rider cancelled their booking on your ride"
	if cancelledBy != booking.RiderID {
		recipientID = booking.RiderID
		message = "The driver cancelled your booking"
	}

	s.send(ctx, domain.Notification{
		Type:        domain.NotificationBookingCancelled,
		RecipientID: recipientID,
		Title:       "Booking Cancelled",
		Message:     message,
		Data: map[string]any{
			"booking_id":   booking.ID,
			"ride_id":      ride.ID,
			"cancelled_by": cancelledBy,
		},
	})
}

// NotifyPaymentReceived tells the driver their earnings were credited.
func (s *NotificationService) NotifyPaymentReceived(ctx context.Context, payment *domain.Payment) {
	s.send(ctx, domain.Notification{
		Type:        domain.NotificationPaymentReceived,
		RecipientID: payment.DriverID,
		Title:       "Payment Received",
		Message:     fmt.Sprintf("You received %s for booking %s", payment.DriverEarnings, payment.BookingID),
		Data: map[string]any{
			"payment_id":      payment.ID,
			"booking_id":      payment.BookingID,
			"driver_earnings": payment.DriverEarnings.String(),
			"method":          payment.Method,
		},
	})
}

// NotifyPaymentRefunded tells the payer their payment was refunded.
func (s *NotificationService) NotifyPaymentRefunded(ctx context.Context, payment *domain.Payment) {
	message := fmt.Sprintf("Your payment of %s was refunded", payment.Amount)
	if payment.Method == domain.PaymentMethodWallet {
		message = fmt.Sprintf("%s was returned to your wallet", payment.Amount)
	}

	s.send(ctx, domain.Notification{
		Type:        domain.NotificationPaymentRefunded,
		RecipientID: payment.PayerID,
		Title:       "Payment Refunded",
		Message:     message,
		Data: map[string]any{
			"payment_id": payment.ID,
			"amount":     payment.Amount.String(),
			"method":     payment.Method,
		},
	})
}

// NotifyRatingReceived tells a user they were rated.
func (s *NotificationService) NotifyRatingReceived(ctx context.Context, rating *domain.Rating) {
	s.send(ctx, domain.Notification{
		Type:        domain.NotificationRatingReceived,
		RecipientID: rating.ToUserID,
		Title:       "New Rating",
		Message:     fmt.Sprintf("You received a %d-star rating", rating.Score),
		Data: map[string]any{
			"rating_id":  rating.ID,
			"booking_id": rating.BookingID,
			"score":      rating.Score,
			"role":       rating.TargetRole,
		},
	})
}

// Wait blocks until every in-flight notification has been handed to the
// publisher.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// send publishes in the background. Failures are logged and dropped.
func (s *NotificationService) send(ctx context.Context, n domain.Notification) {
	if n.RecipientID == "" {
		return
	}
	n.CreatedAt = s.now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"type":      n.Type,
				"recipient": n.RecipientID,
			}).Warn("notification delivery failed")
		}
	}()
}
