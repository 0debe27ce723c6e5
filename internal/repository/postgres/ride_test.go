package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

func mustMoney(s string) domain.Money {
	return domain.MustMoney(s)
}

func TestRideRepository_GetByIDForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	departure := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "driver_id", "origin", "destination", "departure_time",
		"total_seats", "available_seats", "price_per_seat", "status", "created_at",
	}).AddRow("ride-1", "driver-1", "Colombo", "Kandy", departure, 4, 1, "12.50", "POSTED", departure.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM rides WHERE id = $1 FOR UPDATE`)).
		WithArgs("ride-1").
		WillReturnRows(rows)

	ride, err := NewRideRepository(db).GetByIDForUpdate(context.Background(), "ride-1")
	require.NoError(t, err)
	require.Equal(t, "driver-1", ride.DriverID)
	require.Equal(t, 4, ride.TotalSeats)
	require.Equal(t, 1, ride.AvailableSeats)
	require.True(t, ride.PricePerSeat.Equal(mustMoney("12.50")))
	require.Equal(t, domain.RideStatusPosted, ride.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRideRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM rides WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = NewRideRepository(db).GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRideRepository_UpdateNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE rides`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRideRepository(db).Update(context.Background(), &domain.Ride{
		ID:           "gone",
		TotalSeats:   3,
		PricePerSeat: mustMoney("10.00"),
		Status:       domain.RideStatusPosted,
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
