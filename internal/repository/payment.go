package repository

import (
	"context"

	"rideshare/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByIDForUpdate retrieves a payment and locks its row.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error)

	// ListByBooking retrieves every payment recorded for a booking.
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.Payment, error)

	// Update updates the mutable fields of a payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
