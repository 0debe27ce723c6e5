package repository

import (
	"context"

	"rideshare/internal/domain"
)

// RatingRepository defines the persistence operations for ratings.
// Ratings are append-only; there is no update.
type RatingRepository interface {
	// Create persists a new rating.
	Create(ctx context.Context, rating *domain.Rating) error

	// ExistsForBookingAndRater reports whether fromUserID already rated the booking.
	ExistsForBookingAndRater(ctx context.Context, bookingID, fromUserID string) (bool, error)

	// ListScoresForTarget returns every score given to userID in role.
	ListScoresForTarget(ctx context.Context, userID string, role domain.RatingRole) ([]int, error)
}
