package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User holds the wallet and reputation fields the core mutates.
type User struct {
	ID                  string
	Name                string
	Phone               string
	WalletBalance       Money
	AvgRatingAsDriver   decimal.Decimal
	RatingCountAsDriver int
	AvgRatingAsRider    decimal.Decimal
	RatingCountAsRider  int
	CreatedAt           time.Time
}

// Credit adds amount to the wallet.
func (u *User) Credit(amount Money) {
	u.WalletBalance = u.WalletBalance.Add(amount)
}

// Debit removes amount from the wallet, refusing to go below zero.
func (u *User) Debit(amount Money) error {
	if u.WalletBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	u.WalletBalance = u.WalletBalance.Sub(amount)
	return nil
}
