package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
)

// ──────────────────────────────────────────────
// 1. SEAT INVENTORY
// ──────────────────────────────────────────────

func TestReserveSeats_DecrementsAvailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ride, err := f.inventory.ReserveSeats(context.Background(), rideID, 2)
	require.NoError(t, err)
	require.Equal(t, 1, ride.AvailableSeats)
	require.Equal(t, 1, f.store.Ride(rideID).AvailableSeats)
}

func TestReserveSeats_Failures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		setup   func(f *fixture)
		rideID  string
		count   int
		wantErr error
	}{
		{
			name:    "missing ride",
			rideID:  "nope",
			count:   1,
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "more seats than available",
			rideID:  rideID,
			count:   4,
			wantErr: domain.ErrCapacity,
		},
		{
			name:    "non-positive count",
			rideID:  rideID,
			count:   0,
			wantErr: domain.ErrValidation,
		},
		{
			name: "ride cancelled",
			setup: func(f *fixture) {
				r := f.store.Ride(rideID)
				r.Status = domain.RideStatusCancelled
				f.store.AddRide(r)
			},
			rideID:  rideID,
			count:   1,
			wantErr: domain.ErrConflict,
		},
		{
			name: "ride departed",
			setup: func(f *fixture) {
				r := f.store.Ride(rideID)
				r.DepartureTime = time.Now().Add(-time.Minute)
				f.store.AddRide(r)
			},
			rideID:  rideID,
			count:   1,
			wantErr: domain.ErrConflict,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}

			_, err := f.inventory.ReserveSeats(context.Background(), tc.rideID, tc.count)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, 3, f.store.Ride(rideID).AvailableSeats)
		})
	}
}

func TestReleaseSeats_AboveTotalFailsLoudly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.inventory.ReleaseSeats(context.Background(), rideID, 1)
	require.ErrorIs(t, err, domain.ErrSeatInvariant)
	require.Equal(t, 3, f.store.Ride(rideID).AvailableSeats, "seat count must not be clamped or changed")
}

func TestReleaseSeats_ReturnsReservedSeats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.inventory.ReserveSeats(ctx, rideID, 3)
	require.NoError(t, err)

	ride, err := f.inventory.ReleaseSeats(ctx, rideID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, ride.AvailableSeats)
}

func TestAdjustTotalSeats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.CreateBooking(ctx, bookingReq(riderID, 2))
	require.NoError(t, err)

	_, err = f.inventory.AdjustTotalSeats(ctx, rideID, driverID, 1)
	require.ErrorIs(t, err, domain.ErrConflict, "cannot drop below the 2 booked seats")

	_, err = f.inventory.AdjustTotalSeats(ctx, rideID, riderID, 5)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.inventory.AdjustTotalSeats(ctx, rideID, driverID, 10)
	require.ErrorIs(t, err, domain.ErrSeatsIncrease)
	require.Equal(t, 3, f.store.Ride(rideID).TotalSeats)
	require.Equal(t, 1, f.store.Ride(rideID).AvailableSeats)

	ride, err := f.inventory.AdjustTotalSeats(ctx, rideID, driverID, 3)
	require.NoError(t, err, "keeping the same total is allowed")
	require.Equal(t, 1, ride.AvailableSeats)

	ride, err = f.inventory.AdjustTotalSeats(ctx, rideID, driverID, 2)
	require.NoError(t, err)
	require.Equal(t, 0, ride.AvailableSeats)
	f.requireInventoryConsistent(t, rideID)
}

// ──────────────────────────────────────────────
// 2. FROZEN PRICING
// ──────────────────────────────────────────────

func TestFrozenPricing_PriceChangeDoesNotAlterExistingBooking(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.bookings.CreateBooking(ctx, bookingReq(riderID, 2))
	require.NoError(t, err)
	require.Equal(t, "20.00", booking.CostForThisRider.String())

	_, err = f.inventory.UpdatePrice(ctx, rideID, driverID, domain.MustMoney("15.00"))
	require.NoError(t, err)

	require.Equal(t, "20.00", f.store.Booking(booking.ID).CostForThisRider.String())

	later, err := f.bookings.CreateBooking(ctx, bookingReq(rider2ID, 1))
	require.NoError(t, err)
	require.Equal(t, "15.00", later.CostForThisRider.String())

	payment, err := f.payments.InitiatePayment(ctx, payReq(booking, domain.PaymentMethodCash))
	require.NoError(t, err)
	require.Equal(t, "20.00", payment.Amount.String(), "payment uses the frozen cost")
}

func TestUpdatePrice_OnlyDriver(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.inventory.UpdatePrice(context.Background(), rideID, riderID, domain.MustMoney("1.00"))
	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Equal(t, "10.00", f.store.Ride(rideID).PricePerSeat.String())
}
