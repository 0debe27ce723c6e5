package repository

import "context"

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Rides    RideRepository
	Bookings BookingRepository
	Payments PaymentRepository
	Users    UserRepository
	Ratings  RatingRepository
}

// Store hands out repositories for plain reads and runs multi-step
// mutations inside a single transaction.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repositories

	// WithinTx runs fn with transaction-scoped repositories. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
