package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
	"rideshare/internal/service"
)

// ──────────────────────────────────────────────
// 9. RATINGS
// ──────────────────────────────────────────────

// completedBookings books one seat for each rider and completes the ride.
func completedBookings(t *testing.T, f *fixture, riders ...string) []*domain.Booking {
	t.Helper()
	ctx := context.Background()

	var out []*domain.Booking
	for _, rider := range riders {
		b, err := f.bookings.CreateBooking(ctx, bookingReq(rider, 1))
		require.NoError(t, err)
		out = append(out, b)
	}
	_, err := f.bookings.CompleteRide(ctx, rideID, driverID)
	require.NoError(t, err)
	return out
}

func rate(f *fixture, bookingID, from string, score int) (*domain.Rating, error) {
	return f.ratings.CreateRating(context.Background(), service.CreateRatingRequest{
		BookingID:  bookingID,
		FromUserID: from,
		Score:      score,
		Comment:    "thanks",
	})
}

func TestCreateRating_RequiresCompletedBooking(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	booking, err := f.bookings.CreateBooking(context.Background(), bookingReq(riderID, 1))
	require.NoError(t, err)

	_, err = rate(f, booking.ID, riderID, 5)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.Zero(t, f.store.CountRatings())
}

func TestCreateRating_AverageAcrossRiders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bookings := completedBookings(t, f, riderID, rider2ID, rider3ID)

	for i, score := range []int{5, 3, 4} {
		rating, err := rate(f, bookings[i].ID, bookings[i].RiderID, score)
		require.NoError(t, err)
		require.Equal(t, driverID, rating.ToUserID)
		require.Equal(t, domain.RatingRoleDriver, rating.TargetRole)
	}

	driver := f.store.User(driverID)
	require.Equal(t, "4.00", driver.AvgRatingAsDriver.StringFixed(2))
	require.Equal(t, 3, driver.RatingCountAsDriver)
	require.Equal(t, 0, driver.RatingCountAsRider)

	f.notifications.Wait()
	require.Len(t, f.publisher.ByType(domain.NotificationRatingReceived), 3)
}

func TestCreateRating_AverageRoundsHalfUp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bookings := completedBookings(t, f, riderID, rider2ID, rider3ID)

	for i, score := range []int{5, 5, 4} {
		_, err := rate(f, bookings[i].ID, bookings[i].RiderID, score)
		require.NoError(t, err)
	}
	require.Equal(t, "4.67", f.store.User(driverID).AvgRatingAsDriver.StringFixed(2))
}

func TestCreateRating_DriverRatesRider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bookings := completedBookings(t, f, riderID)

	rating, err := rate(f, bookings[0].ID, driverID, 2)
	require.NoError(t, err)
	require.Equal(t, riderID, rating.ToUserID)
	require.Equal(t, domain.RatingRoleRider, rating.TargetRole)

	rider := f.store.User(riderID)
	require.Equal(t, "2.00", rider.AvgRatingAsRider.StringFixed(2))
	require.Equal(t, 1, rider.RatingCountAsRider)
	require.Equal(t, 0, rider.RatingCountAsDriver)

	// Each direction is independent.
	_, err = rate(f, bookings[0].ID, riderID, 5)
	require.NoError(t, err)
}

func TestCreateRating_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bookings := completedBookings(t, f, riderID)
	id := bookings[0].ID

	_, err := rate(f, "missing", riderID, 5)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = rate(f, id, rider2ID, 5)
	require.ErrorIs(t, err, domain.ErrForbidden)

	for _, score := range []int{0, 6, -3} {
		_, err = rate(f, id, riderID, score)
		require.ErrorIs(t, err, domain.ErrValidation)
	}
	require.Zero(t, f.store.CountRatings())

	_, err = rate(f, id, riderID, 4)
	require.NoError(t, err)

	_, err = rate(f, id, riderID, 5)
	require.ErrorIs(t, err, domain.ErrDuplicateRating)
	require.ErrorIs(t, err, domain.ErrConflict)

	driver := f.store.User(driverID)
	require.Equal(t, "4.00", driver.AvgRatingAsDriver.StringFixed(2))
	require.Equal(t, 1, driver.RatingCountAsDriver)
}

func TestCreateRating_AggregateFailureDropsRating(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	bookings := completedBookings(t, f, riderID)
	f.store.RatingAggregateError = errors.New("write failed")

	_, err := rate(f, bookings[0].ID, riderID, 5)
	require.Error(t, err)
	require.Zero(t, f.store.CountRatings(), "rating and aggregate commit together")
	require.Equal(t, 0, f.store.User(driverID).RatingCountAsDriver)
}
