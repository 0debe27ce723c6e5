package tests

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rideshare/internal/domain"
	"rideshare/internal/logging"
	"rideshare/internal/service"
)

const (
	driverID = "driver-1"
	riderID  = "rider-1"
	rider2ID = "rider-2"
	rider3ID = "rider-3"
	rideID   = "ride-1"
)

var feeRate = decimal.RequireFromString("0.10")

type fixture struct {
	store         *MemoryStore
	publisher     *MockPublisher
	dispatcher    *MockDispatcher
	notifications *service.NotificationService
	inventory     *service.InventoryService
	bookings      *service.BookingService
	payments      *service.PaymentService
	ratings       *service.RatingService
}

// newFixture seeds a driver, three riders with 100.00 each and a posted
// ride with 3 seats at 10.00 departing tomorrow.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logging.Discard()
	store := NewMemoryStore()
	publisher := NewMockPublisher()
	dispatcher := NewMockDispatcher()
	notifications := service.NewNotificationService(publisher, logger)
	inventory := service.NewInventoryService(store, logger)

	f := &fixture{
		store:         store,
		publisher:     publisher,
		dispatcher:    dispatcher,
		notifications: notifications,
		inventory:     inventory,
		bookings:      service.NewBookingService(store, inventory, notifications, logger),
		payments:      service.NewPaymentService(store, dispatcher, notifications, feeRate, logger),
		ratings:       service.NewRatingService(store, notifications, logger),
	}

	store.AddUser(&domain.User{ID: driverID, Name: "Dana Driver", WalletBalance: domain.Zero})
	for _, id := range []string{riderID, rider2ID, rider3ID} {
		store.AddUser(&domain.User{ID: id, Name: id, WalletBalance: domain.MustMoney("100.00")})
	}
	f.addRide(rideID, 3, "10.00")

	t.Cleanup(notifications.Wait)
	return f
}

func (f *fixture) addRide(id string, seats int, price string) {
	f.store.AddRide(&domain.Ride{
		ID:             id,
		DriverID:       driverID,
		Origin:         "Lisbon",
		Destination:    "Porto",
		DepartureTime:  time.Now().Add(24 * time.Hour),
		TotalSeats:     seats,
		AvailableSeats: seats,
		PricePerSeat:   domain.MustMoney(price),
		Status:         domain.RideStatusPosted,
		CreatedAt:      time.Now(),
	})
}

func (f *fixture) balance(userID string) string {
	return f.store.User(userID).WalletBalance.String()
}

// bookedSeats sums the seats of every booking on a ride that still holds
// inventory.
func (f *fixture) bookedSeats(rideID string) int {
	total := 0
	for _, b := range f.store.BookingsForRide(rideID) {
		if b.Status != domain.BookingStatusCancelled {
			total += b.SeatsBooked
		}
	}
	return total
}

func (f *fixture) requireInventoryConsistent(t *testing.T, rideID string) {
	t.Helper()
	ride := f.store.Ride(rideID)
	if got := ride.AvailableSeats + f.bookedSeats(rideID); got != ride.TotalSeats {
		t.Fatalf("inventory drift on %s: available %d + booked %d != total %d",
			rideID, ride.AvailableSeats, f.bookedSeats(rideID), ride.TotalSeats)
	}
}

func bookingReq(rider string, seats int) service.CreateBookingRequest {
	return service.CreateBookingRequest{RideID: rideID, RiderID: rider, Seats: seats}
}

func payReq(b *domain.Booking, method domain.PaymentMethod) service.InitiatePaymentRequest {
	return service.InitiatePaymentRequest{BookingID: b.ID, PayerID: b.RiderID, Method: method}
}
