package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	// BookingStatusPending is never persisted; creation is all-or-nothing.
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransitionTo reports whether the booking may move to next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return contains(bookingTransitions[s], next)
}

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Booking is a rider's seat reservation on a ride.
type Booking struct {
	ID               string
	RideID           string
	RiderID          string
	SeatsBooked      int
	Status           BookingStatus
	CostForThisRider Money // frozen at creation
	CreatedAt        time.Time
	CancelledAt      time.Time
}

// Transition moves the booking to next or returns a *TransitionError.
func (b *Booking) Transition(next BookingStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "booking", From: string(b.Status), To: string(next)}
	}
	b.Status = next
	return nil
}
