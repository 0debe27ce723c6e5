package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rideshare/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories bound to the connection pool.
func (s *Store) Repos() repository.Repositories {
	return reposFor(s.db)
}

// WithinTx runs fn inside a READ COMMITTED transaction. Row-level
// consistency comes from the ForUpdate reads the services issue.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, reposFor(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func reposFor(q Querier) repository.Repositories {
	return repository.Repositories{
		Rides:    &RideRepository{q: q},
		Bookings: &BookingRepository{q: q},
		Payments: &PaymentRepository{q: q},
		Users:    &UserRepository{q: q},
		Ratings:  &RatingRepository{q: q},
	}
}
