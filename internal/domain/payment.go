package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusInitiated  PaymentStatus = "INITIATED"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusSettled    PaymentStatus = "SETTLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated:  {PaymentStatusProcessing, PaymentStatusSettled},
	PaymentStatusProcessing: {PaymentStatusSettled},
	PaymentStatusSettled:    {PaymentStatusRefunded},
}

// CanTransitionTo reports whether the payment may move to next.
// INITIATED -> SETTLED directly is only taken by cash payments.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return contains(paymentTransitions[s], next)
}

// IsOpen reports whether the payment still blocks a new payment for the
// same booking.
func (s PaymentStatus) IsOpen() bool {
	return s != PaymentStatusRefunded
}

// PaymentMethod represents how the rider pays.
type PaymentMethod string

const (
	PaymentMethodWallet        PaymentMethod = "WALLET"
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodCardSimulated PaymentMethod = "CARD_SIMULATED"
)

// ParsePaymentMethod validates a payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodWallet, PaymentMethodCash, PaymentMethodCardSimulated:
		return m, nil
	default:
		return "", ErrInvalidMethod
	}
}

// Payment moves a booking's frozen cost from the payer to the driver.
type Payment struct {
	ID             string
	BookingID      string
	PayerID        string
	DriverID       string
	Amount         Money
	PlatformFee    Money
	DriverEarnings Money
	Method         PaymentMethod
	Status         PaymentStatus
	TransactionRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SettledAt      time.Time
	RefundedAt     time.Time
}

// Transition moves the payment to next, stamping the relevant timestamps.
func (p *Payment) Transition(next PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return &TransitionError{Entity: "payment", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	p.UpdatedAt = now
	switch next {
	case PaymentStatusSettled:
		p.SettledAt = now
	case PaymentStatusRefunded:
		p.RefundedAt = now
	}
	return nil
}
