package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// BookingService handles seat reservations on posted rides.
type BookingService struct {
	store               repository.Store
	inventory           *InventoryService
	notificationService *NotificationService
	logger              *logrus.Logger
	now                 func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	store repository.Store,
	inventory *InventoryService,
	notificationService *NotificationService,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		store:               store,
		inventory:           inventory,
		notificationService: notificationService,
		logger:              logger,
		now:                 time.Now,
	}
}

// CreateBookingRequest contains the parameters for booking seats.
type CreateBookingRequest struct {
	RideID  string
	RiderID string
	Seats   int
}

// CreateBooking reserves seats and records a confirmed booking with its
// cost frozen at the current price. Seat reservation and booking insert
// commit together, so a failed insert never leaves seats held.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.RideID == "" || req.RiderID == "" {
		return nil, domain.ErrInvalidID
	}
	if req.Seats <= 0 {
		return nil, domain.ErrInvalidSeatCount
	}

	var (
		booking *domain.Booking
		ride    *domain.Ride
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides.GetByIDForUpdate(ctx, req.RideID)
		if err != nil {
			return err
		}

		if ride.DriverID == req.RiderID {
			return domain.ErrDriverOwnRide
		}

		existing, err := repos.Bookings.GetActiveByRideAndRider(ctx, req.RideID, req.RiderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateBooking
		}

		now := s.now()
		if ride.HasDeparted(now) {
			return domain.ErrRideDeparted
		}

		ride, err = s.inventory.reserveSeats(ctx, repos.Rides, req.RideID, req.Seats)
		if err != nil {
			return err
		}

		booking = &domain.Booking{
			ID:               uuid.New().String(),
			RideID:           ride.ID,
			RiderID:          req.RiderID,
			SeatsBooked:      req.Seats,
			Status:           domain.BookingStatusPending,
			CostForThisRider: ride.PricePerSeat.MulInt(req.Seats),
			CreatedAt:        now,
		}
		if err := booking.Transition(domain.BookingStatusConfirmed); err != nil {
			return err
		}
		return repos.Bookings.Create(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"ride_id":    ride.ID,
		"seats":      booking.SeatsBooked,
		"cost":       booking.CostForThisRider.String(),
	}).Info("booking confirmed")
	s.notificationService.NotifyBookingConfirmed(ctx, booking, ride)

	return booking, nil
}

// CancelBookingRequest contains the parameters for cancelling a booking.
type CancelBookingRequest struct {
	BookingID    string
	ActingUserID string
}

// CancelBooking cancels a confirmed booking and returns its seats. Either
// the rider or the ride's driver may cancel. A settled payment is left as
// is; refunding it is a separate action.
func (s *BookingService) CancelBooking(ctx context.Context, req CancelBookingRequest) (*domain.Booking, error) {
	if req.BookingID == "" || req.ActingUserID == "" {
		return nil, domain.ErrInvalidID
	}

	var (
		booking *domain.Booking
		ride    *domain.Ride
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		// Rides are always locked before their bookings.
		current, err := repos.Bookings.GetByID(ctx, req.BookingID)
		if err != nil {
			return err
		}
		ride, err = repos.Rides.GetByIDForUpdate(ctx, current.RideID)
		if err != nil {
			return err
		}
		booking, err = repos.Bookings.GetByIDForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}

		if req.ActingUserID != booking.RiderID && req.ActingUserID != ride.DriverID {
			return domain.ErrNotParticipant
		}
		if booking.Status.IsTerminal() {
			return domain.ErrBookingNotCancellable
		}

		if err := booking.Transition(domain.BookingStatusCancelled); err != nil {
			return err
		}
		booking.CancelledAt = s.now()
		if err := repos.Bookings.Update(ctx, booking); err != nil {
			return err
		}

		ride, err = s.inventory.releaseSeats(ctx, repos.Rides, ride.ID, booking.SeatsBooked)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"ride_id":      ride.ID,
		"cancelled_by": req.ActingUserID,
	}).Info("booking cancelled")
	s.notificationService.NotifyBookingCancelled(ctx, booking, ride, req.ActingUserID)

	return booking, nil
}

// GetBooking retrieves a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.Repos().Bookings.GetByID(ctx, bookingID)
}

// CompleteRide marks a ride completed and completes every confirmed
// booking on it, which makes them payable after the fact and ratable.
func (s *BookingService) CompleteRide(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	if rideID == "" || driverID == "" {
		return nil, domain.ErrInvalidID
	}

	var (
		ride      *domain.Ride
		completed int
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.DriverID != driverID {
			return domain.ErrNotRideDriver
		}
		if err := ride.Transition(domain.RideStatusCompleted); err != nil {
			return err
		}
		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}

		bookings, err := repos.Bookings.ListByRide(ctx, rideID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if b.Status != domain.BookingStatusConfirmed {
				continue
			}
			if err := b.Transition(domain.BookingStatusCompleted); err != nil {
				return err
			}
			if err := repos.Bookings.Update(ctx, b); err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"ride_id":  ride.ID,
		"bookings": completed,
	}).Info("ride completed")

	return ride, nil
}
