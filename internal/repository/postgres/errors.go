package postgres

import (
	"database/sql"
	"errors"

	"rideshare/internal/repository"
)

// mapNoRows converts sql.ErrNoRows into repository.ErrNotFound.
func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// expectOneRow turns an UPDATE that touched no rows into ErrNotFound.
func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
