package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"rideshare/internal/domain"
)

func TestUserRepository_UpdateRatingAggregate(t *testing.T) {
	tests := []struct {
		role  domain.RatingRole
		query string
	}{
		{domain.RatingRoleDriver, `UPDATE users SET avg_rating_as_driver = $1, rating_count_as_driver = $2 WHERE id = $3`},
		{domain.RatingRoleRider, `UPDATE users SET avg_rating_as_rider = $1, rating_count_as_rider = $2 WHERE id = $3`},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(regexp.QuoteMeta(tt.query)).
				WithArgs(sqlmock.AnyArg(), 3, "user-1").
				WillReturnResult(sqlmock.NewResult(0, 1))

			err = NewUserRepository(db).UpdateRatingAggregate(context.Background(), "user-1", tt.role, decimal.RequireFromString("4.33"), 3)
			require.NoError(t, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_UpdateRatingAggregateUnknownRole(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewUserRepository(db).UpdateRatingAggregate(context.Background(), "user-1", "PASSENGER", decimal.Zero, 0)
	require.ErrorContains(t, err, "unknown rating role")
}

func TestUserRepository_GetByIDForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "name", "phone", "wallet_balance", "avg_rating_as_driver", "rating_count_as_driver",
		"avg_rating_as_rider", "rating_count_as_rider", "created_at",
	}).AddRow("user-1", "Nimal", "+94770000000", "42.10", "4.50", 2, "0", 0, testTime)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1 FOR UPDATE`)).
		WithArgs("user-1").
		WillReturnRows(rows)

	user, err := NewUserRepository(db).GetByIDForUpdate(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, user.WalletBalance.Equal(mustMoney("42.10")))
	require.True(t, user.AvgRatingAsDriver.Equal(decimal.RequireFromString("4.5")))
	require.Equal(t, 2, user.RatingCountAsDriver)
	require.NoError(t, mock.ExpectationsWereMet())
}
