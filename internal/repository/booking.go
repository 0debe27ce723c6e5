package repository

import (
	"context"

	"rideshare/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking and locks its row.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByRideAndRider retrieves the non-cancelled booking a rider
	// holds on a ride. Returns nil if none exists.
	GetActiveByRideAndRider(ctx context.Context, rideID, riderID string) (*domain.Booking, error)

	// ListByRide retrieves all bookings on a ride, oldest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error)

	// Update updates an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error
}
