package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits every amount is rounded to.
const MoneyScale = 2

// Money is a fixed-point monetary amount rounded half-up to two decimals.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

// NewMoney parses a decimal string such as "20.00".
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrValidation, s)
	}
	return MoneyFromDecimal(d), nil
}

// MustMoney is NewMoney for constants and tests. It panics on malformed input.
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MoneyFromDecimal rounds d to the money scale.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: RoundHalfUp(d)}
}

// RoundHalfUp rounds to two decimals, ties away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// MulInt multiplies by a whole quantity, e.g. price per seat times seats.
func (m Money) MulInt(n int) Money {
	return MoneyFromDecimal(m.d.Mul(decimal.NewFromInt(int64(n))))
}

// MulRate multiplies by a fractional rate and rounds the result.
func (m Money) MulRate(rate decimal.Decimal) Money {
	return MoneyFromDecimal(m.d.Mul(rate))
}

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }
func (m Money) LessThan(o Money) bool { return m.d.LessThan(o.d) }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }
func (m Money) IsZero() bool { return m.d.IsZero() }
func (m Money) String() string { return m.d.StringFixed(MoneyScale) }
func (m Money) GoString() string { return "Money(" + m.String() + ")" }

// Value implements driver.Valuer so amounts are stored as NUMERIC.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return err
	}
	*m = MoneyFromDecimal(d)
	return nil
}

// MarshalJSON renders the amount as a fixed two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: invalid amount", ErrValidation)
	}
	*m = MoneyFromDecimal(d)
	return nil
}
