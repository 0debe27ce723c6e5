package domain

import "time"

// RideStatus represents the current status of a posted ride.
type RideStatus string

const (
	RideStatusPosted     RideStatus = "POSTED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusPosted:     {RideStatusInProgress, RideStatusCompleted, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted},
}

// CanTransitionTo reports whether the ride may move to next.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	return contains(rideTransitions[s], next)
}

// Ride is a driver-posted trip with bookable seats.
type Ride struct {
	ID             string
	DriverID       string
	Origin         string
	Destination    string
	DepartureTime  time.Time
	TotalSeats     int
	AvailableSeats int
	PricePerSeat   Money
	Status         RideStatus
	CreatedAt      time.Time
}

// BookedSeats is the number of seats held by non-cancelled bookings.
func (r *Ride) BookedSeats() int {
	return r.TotalSeats - r.AvailableSeats
}

// HasDeparted reports whether the departure time is not after now.
func (r *Ride) HasDeparted(now time.Time) bool {
	return !r.DepartureTime.After(now)
}

// Transition moves the ride to next or returns a *TransitionError.
func (r *Ride) Transition(next RideStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "ride", From: string(r.Status), To: string(next)}
	}
	r.Status = next
	return nil
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
