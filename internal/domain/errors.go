package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the core wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the acting user lacks permission on the target.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned for state-machine violations and duplicates.
	ErrConflict = errors.New("conflict")

	// ErrCapacity is returned when a ride has fewer seats than requested.
	ErrCapacity = errors.New("insufficient seats")

	// ErrInsufficientFunds is returned when a wallet debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ErrSeatInvariant signals that releasing seats would push availableSeats
// above totalSeats. It is a bug, not a caller error.
var ErrSeatInvariant = errors.New("seat inventory invariant violated")

var (
	ErrRideNotBookable       = fmt.Errorf("%w: ride not bookable", ErrConflict)
	ErrRideDeparted          = fmt.Errorf("%w: ride has already departed", ErrConflict)
	ErrDriverOwnRide         = fmt.Errorf("%w: driver cannot book own ride", ErrConflict)
	ErrDuplicateBooking      = fmt.Errorf("%w: rider already has an active booking on this ride", ErrConflict)
	ErrBookingNotCancellable = fmt.Errorf("%w: booking is already cancelled or completed", ErrConflict)
	ErrBookingCancelled      = fmt.Errorf("%w: booking is cancelled", ErrConflict)
	ErrBookingNotCompleted   = fmt.Errorf("%w: booking not completed", ErrConflict)
	ErrAlreadyPaid           = fmt.Errorf("%w: already paid", ErrConflict)
	ErrPaymentNotInitiated   = fmt.Errorf("%w: payment is not awaiting settlement", ErrConflict)
	ErrPaymentNotSettled     = fmt.Errorf("%w: payment is not settled", ErrConflict)
	ErrDuplicateRating       = fmt.Errorf("%w: rating already submitted for this booking", ErrConflict)
	ErrSeatsBelowBooked      = fmt.Errorf("%w: total seats cannot drop below seats already booked", ErrConflict)
	ErrSeatsIncrease         = fmt.Errorf("%w: total seats can only be reduced", ErrConflict)

	ErrNotParticipant = fmt.Errorf("%w: user is not a participant of this booking", ErrForbidden)
	ErrNotPayer       = fmt.Errorf("%w: only the rider can pay for this booking", ErrForbidden)
	ErrNotRideDriver  = fmt.Errorf("%w: only the ride's driver can do this", ErrForbidden)

	ErrInvalidSeatCount = fmt.Errorf("%w: seat count must be positive", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidScore     = fmt.Errorf("%w: score must be between 1 and 5", ErrValidation)
	ErrInvalidMethod    = fmt.Errorf("%w: unknown payment method", ErrValidation)
	ErrInvalidID        = fmt.Errorf("%w: id is required", ErrValidation)
)

// TransitionError reports a status change that is not in the transition table.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// Unwrap classifies illegal transitions as conflicts.
func (e *TransitionError) Unwrap() error { return ErrConflict }
