package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/domain"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// Create persists a new rating.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, booking_id, from_user_id, to_user_id, target_role, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		rating.ID,
		rating.BookingID,
		rating.FromUserID,
		rating.ToUserID,
		rating.TargetRole,
		rating.Score,
		rating.Comment,
		rating.CreatedAt,
	)

	return err
}

// ExistsForBookingAndRater reports whether fromUserID already rated the booking.
func (r *RatingRepository) ExistsForBookingAndRater(ctx context.Context, bookingID, fromUserID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE booking_id = $1 AND from_user_id = $2)`,
		bookingID, fromUserID,
	).Scan(&exists)
	return exists, err
}

// ListScoresForTarget returns every score given to userID in role.
func (r *RatingRepository) ListScoresForTarget(ctx context.Context, userID string, role domain.RatingRole) ([]int, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT score FROM ratings WHERE to_user_id = $1 AND target_role = $2 ORDER BY created_at`,
		userID, role,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}
