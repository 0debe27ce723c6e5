package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rideshare/internal/domain"
	"rideshare/internal/repository"
)

// InventoryService owns the seat count of every ride. All changes to
// AvailableSeats go through it while the ride row is locked.
type InventoryService struct {
	store  repository.Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(store repository.Store, logger *logrus.Logger) *InventoryService {
	return &InventoryService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetRide retrieves a ride by ID.
func (s *InventoryService) GetRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.store.Repos().Rides.GetByID(ctx, rideID)
}

// ReserveSeats takes count seats from a posted, not yet departed ride.
func (s *InventoryService) ReserveSeats(ctx context.Context, rideID string, count int) (*domain.Ride, error) {
	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = s.reserveSeats(ctx, repos.Rides, rideID, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// ReleaseSeats returns count seats to a ride.
func (s *InventoryService) ReleaseSeats(ctx context.Context, rideID string, count int) (*domain.Ride, error) {
	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = s.releaseSeats(ctx, repos.Rides, rideID, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// AdjustTotalSeats reduces the capacity of a posted ride. Capacity is fixed
// at creation and can only shrink, never below the seats already booked.
func (s *InventoryService) AdjustTotalSeats(ctx context.Context, rideID, driverID string, newTotal int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.ErrInvalidID
	}
	if newTotal <= 0 {
		return nil, domain.ErrInvalidSeatCount
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = s.lockDriverRide(ctx, repos.Rides, rideID, driverID)
		if err != nil {
			return err
		}

		if newTotal > ride.TotalSeats {
			return fmt.Errorf("%w: total %d, requested %d", domain.ErrSeatsIncrease, ride.TotalSeats, newTotal)
		}
		booked := ride.BookedSeats()
		if newTotal < booked {
			return fmt.Errorf("%w: %d booked, requested total %d", domain.ErrSeatsBelowBooked, booked, newTotal)
		}
		ride.TotalSeats = newTotal
		ride.AvailableSeats = newTotal - booked
		return repos.Rides.Update(ctx, ride)
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

// UpdatePrice changes the per-seat price of a posted ride. Existing
// bookings keep the cost they were created with.
func (s *InventoryService) UpdatePrice(ctx context.Context, rideID, driverID string, price domain.Money) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.ErrInvalidID
	}
	if price.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	var ride *domain.Ride
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		ride, err = s.lockDriverRide(ctx, repos.Rides, rideID, driverID)
		if err != nil {
			return err
		}
		ride.PricePerSeat = price
		return repos.Rides.Update(ctx, ride)
	})
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func (s *InventoryService) lockDriverRide(ctx context.Context, rides repository.RideRepository, rideID, driverID string) (*domain.Ride, error) {
	ride, err := rides.GetByIDForUpdate(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != driverID {
		return nil, domain.ErrNotRideDriver
	}
	if ride.Status != domain.RideStatusPosted {
		return nil, domain.ErrRideNotBookable
	}
	return ride, nil
}

// reserveSeats runs inside the caller's transaction.
func (s *InventoryService) reserveSeats(ctx context.Context, rides repository.RideRepository, rideID string, count int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.ErrInvalidID
	}
	if count <= 0 {
		return nil, domain.ErrInvalidSeatCount
	}

	ride, err := rides.GetByIDForUpdate(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusPosted {
		return nil, domain.ErrRideNotBookable
	}
	if ride.HasDeparted(s.now()) {
		return nil, domain.ErrRideDeparted
	}
	if ride.AvailableSeats < count {
		return nil, fmt.Errorf("%w: requested %d, available %d", domain.ErrCapacity, count, ride.AvailableSeats)
	}

	ride.AvailableSeats -= count
	if err := rides.Update(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}

// releaseSeats runs inside the caller's transaction.
func (s *InventoryService) releaseSeats(ctx context.Context, rides repository.RideRepository, rideID string, count int) (*domain.Ride, error) {
	if rideID == "" {
		return nil, domain.ErrInvalidID
	}
	if count <= 0 {
		return nil, domain.ErrInvalidSeatCount
	}

	ride, err := rides.GetByIDForUpdate(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.AvailableSeats+count > ride.TotalSeats {
		s.logger.WithFields(logrus.Fields{
			"ride_id":         ride.ID,
			"available_seats": ride.AvailableSeats,
			"total_seats":     ride.TotalSeats,
			"release":         count,
		}).Error("seat release exceeds capacity")
		return nil, domain.ErrSeatInvariant
	}

	ride.AvailableSeats += count
	if err := rides.Update(ctx, ride); err != nil {
		return nil, err
	}
	return ride, nil
}
