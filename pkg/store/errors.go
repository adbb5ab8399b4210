package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when no invoice has the requested id.
	ErrNotFound = errors.New("invoice not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrNoConnection is returned when no database URL was configured.
	ErrNoConnection = errors.New("no database connection")

	// ErrTableMissing is returned by Describe before the first migration ran.
	ErrTableMissing = errors.New("invoices table does not exist")
)

// QueryError represents a query execution error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// MigrationError represents a failed migration step.
type MigrationError struct {
	Version string
	Message string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration error (version %s): %s: %v", e.Version, e.Message, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// mapError translates driver errors into the package sentinels, keeping the
// original error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}
