package intelligence

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrGateClosed = errors.New("edit mode not enabled")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// translateDBError maps storage errors onto the package's error kinds. Errors
// that already carry a kind are returned unchanged.
func translateDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrGateClosed, ErrNotFound, ErrValidation, ErrConflict} {
		if errors.Is(err, kind) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s references a missing record", ErrNotFound, what)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s already exists", ErrConflict, what)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing record", ErrNotFound, what)
		case pgNotNullViolation, pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrValidation, pgErr.Message)
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func errConflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrConflict}, args...)...)
}
