package repository

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the query.
	ErrNotFound = errors.New("[repository]: record not found")
	// ErrDuplicateKey is returned when an insert violates a unique index.
	ErrDuplicateKey = errors.New("[repository]: duplicate key")
)

// convertError maps driver errors to repository errors. Anything unknown is
// wrapped with msg and returned as is.
func convertError(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateEntryError(err):
		return ErrDuplicateKey
	default:
		return errors.Wrap(err, msg)
	}
}

// isDuplicateEntryError catches unique violations of dialectors that don't
// translate their errors.
func isDuplicateEntryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
}
