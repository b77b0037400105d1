package billing

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrValidation marks malformed input, rejected before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrConstraint marks a store-level uniqueness, foreign-key or check
	// violation. The surrounding transaction has been rolled back.
	ErrConstraint = errors.New("constraint violation")

	// ErrTxFailure marks any other failure inside a transactional scope.
	// The scope has been rolled back; nothing from it is observable.
	ErrTxFailure = errors.New("transaction failed")

	// ErrConnUnavailable marks pool exhaustion or an acquire timeout.
	// Callers may back off and retry; the engine never retries itself.
	ErrConnUnavailable = errors.New("connection unavailable")

	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock rejects an order whose inventory decrement would
	// drive an ingredient negative. A constraint in spirit: the whole order
	// transaction rolls back.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConstraint)
)

// SQLSTATE classes we map onto the taxonomy.
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
	pgCheckViolation  = "23514"
)

// classify maps a driver error onto the engine's error taxonomy. Everything
// unrecognized inside a transaction is a transaction failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgFKViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrTxFailure, err)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
