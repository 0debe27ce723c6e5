package postgres

import (
	"context"
	"database/sql"

	"rideshare/internal/domain"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

const rideColumns = `id, driver_id, origin, destination, departure_time, total_seats, available_seats, price_per_seat, status, created_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.DriverID,
		ride.Origin,
		ride.Destination,
		ride.DepartureTime,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.PricePerSeat,
		ride.Status,
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a ride and locks its row.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

func (r *RideRepository) get(ctx context.Context, query, id string) (*domain.Ride, error) {
	var ride domain.Ride
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&ride.ID,
		&ride.DriverID,
		&ride.Origin,
		&ride.Destination,
		&ride.DepartureTime,
		&ride.TotalSeats,
		&ride.AvailableSeats,
		&ride.PricePerSeat,
		&ride.Status,
		&ride.CreatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return &ride, nil
}

// Update updates an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET total_seats = $1, available_seats = $2, price_per_seat = $3, status = $4, departure_time = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.TotalSeats,
		ride.AvailableSeats,
		ride.PricePerSeat,
		ride.Status,
		ride.DepartureTime,
		ride.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}
