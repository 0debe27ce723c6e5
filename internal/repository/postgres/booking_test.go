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
)

var testTime = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func TestBookingRepository_GetActiveByRideAndRiderNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ride_id = $1 AND rider_id = $2 AND status <> $3`)).
		WithArgs("ride-1", "rider-1", "CANCELLED").
		WillReturnError(sql.ErrNoRows)

	booking, err := NewBookingRepository(db).GetActiveByRideAndRider(context.Background(), "ride-1", "rider-1")
	require.NoError(t, err)
	require.Nil(t, booking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByRide(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columns := []string{"id", "ride_id", "rider_id", "seats_booked", "status", "cost_for_this_rider", "created_at", "cancelled_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("b-1", "ride-1", "rider-1", 2, "CONFIRMED", "20.00", testTime, nil).
		AddRow("b-2", "ride-1", "rider-2", 1, "CANCELLED", "10.00", testTime, testTime.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(`FROM bookings WHERE ride_id = $1 ORDER BY created_at`)).
		WithArgs("ride-1").
		WillReturnRows(rows)

	bookings, err := NewBookingRepository(db).ListByRide(context.Background(), "ride-1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	require.True(t, bookings[0].CancelledAt.IsZero())
	require.Equal(t, domain.BookingStatusCancelled, bookings[1].Status)
	require.Equal(t, testTime.Add(time.Hour), bookings[1].CancelledAt)
	require.True(t, bookings[0].CostForThisRider.Equal(mustMoney("20.00")))
}
