package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rideshare/internal/domain"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

const bookingColumns = `id, ride_id, rider_id, seats_booked, status, cost_for_this_rider, created_at, cancelled_at`

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var cancelledAt sql.NullTime
	if err := row.Scan(
		&b.ID,
		&b.RideID,
		&b.RiderID,
		&b.SeatsBooked,
		&b.Status,
		&b.CostForThisRider,
		&b.CreatedAt,
		&cancelledAt,
	); err != nil {
		return nil, err
	}
	b.CancelledAt = fromNullTime(cancelledAt)
	return &b, nil
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.RideID,
		booking.RiderID,
		booking.SeatsBooked,
		booking.Status,
		booking.CostForThisRider,
		booking.CreatedAt,
		toNullTime(booking.CancelledAt),
	)

	return err
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return b, nil
}

// GetByIDForUpdate retrieves a booking and locks its row.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return b, nil
}

// GetActiveByRideAndRider retrieves the non-cancelled booking a rider holds
// on a ride. Returns nil if none exists.
func (r *BookingRepository) GetActiveByRideAndRider(ctx context.Context, rideID, riderID string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ride_id = $1 AND rider_id = $2 AND status <> $3
		LIMIT 1
	`

	b, err := scanBooking(r.q.QueryRowContext(ctx, query, rideID, riderID, domain.BookingStatusCancelled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// ListByRide retrieves all bookings on a ride, oldest first.
func (r *BookingRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Booking, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ride_id = $1 ORDER BY created_at`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Update updates an existing booking.
func (r *BookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	query := `UPDATE bookings SET status = $1, cancelled_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query,
		booking.Status,
		toNullTime(booking.CancelledAt),
		booking.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}
