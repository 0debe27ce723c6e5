package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"rideshare/internal/domain"
)

// UserRepository defines the wallet and reputation operations on users.
type UserRepository interface {
	// Create adds a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIDForUpdate retrieves a user and locks its row.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error)

	// UpdateWalletBalance overwrites the wallet balance.
	UpdateWalletBalance(ctx context.Context, id string, balance domain.Money) error

	// UpdateRatingAggregate overwrites the average and count for one role.
	UpdateRatingAggregate(ctx context.Context, id string, role domain.RatingRole, avg decimal.Decimal, count int) error
}
