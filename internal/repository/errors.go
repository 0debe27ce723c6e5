package repository

import (
	"fmt"

	"rideshare/internal/domain"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = fmt.Errorf("entity %w", domain.ErrNotFound)
)
