package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"rideshare/internal/domain"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

const userColumns = `id, name, phone, wallet_balance, avg_rating_as_driver, rating_count_as_driver, avg_rating_as_rider, rating_count_as_rider, created_at`

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Phone,
		user.WalletBalance,
		user.AvgRatingAsDriver,
		user.RatingCountAsDriver,
		user.AvgRatingAsRider,
		user.RatingCountAsRider,
		user.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a user and locks its row.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *UserRepository) get(ctx context.Context, query, id string) (*domain.User, error) {
	var user domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Phone,
		&user.WalletBalance,
		&user.AvgRatingAsDriver,
		&user.RatingCountAsDriver,
		&user.AvgRatingAsRider,
		&user.RatingCountAsRider,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &user, nil
}

// UpdateWalletBalance overwrites the wallet balance.
func (r *UserRepository) UpdateWalletBalance(ctx context.Context, id string, balance domain.Money) error {
	result, err := r.q.ExecContext(ctx, `UPDATE users SET wallet_balance = $1 WHERE id = $2`, balance, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// UpdateRatingAggregate overwrites the average and count for one role.
func (r *UserRepository) UpdateRatingAggregate(ctx context.Context, id string, role domain.RatingRole, avg decimal.Decimal, count int) error {
	var query string
	switch role {
	case domain.RatingRoleDriver:
		query = `UPDATE users SET avg_rating_as_driver = $1, rating_count_as_driver = $2 WHERE id = $3`
	case domain.RatingRoleRider:
		query = `UPDATE users SET avg_rating_as_rider = $1, rating_count_as_rider = $2 WHERE id = $3`
	default:
		return fmt.Errorf("unknown rating role %q", role)
	}

	result, err := r.q.ExecContext(ctx, query, avg, count, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}
