package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatingRole is the role in which the rated user took part in the trip.
type RatingRole string

const (
	RatingRoleDriver RatingRole = "DRIVER"
	RatingRoleRider  RatingRole = "RIDER"
)

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is an immutable score one participant gives the other.
type Rating struct {
	ID         string
	BookingID  string
	FromUserID string
	ToUserID   string
	TargetRole RatingRole
	Score      int
	Comment    string
	CreatedAt  time.Time
}

// AverageScore returns the arithmetic mean of scores rounded half-up to two
// decimals, and zero for an empty slice.
func AverageScore(scores []int) decimal.Decimal {
	if len(scores) == 0 {
		return decimal.Zero
	}
	var sum int64
	for _, s := range scores {
		sum += int64(s)
	}
	return RoundHalfUp(decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(scores)))))
}
