package repository

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate marks a write rejected by a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// WriteError is returned by every Insert that fails.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Table, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

func writeErr(table string, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrDuplicate) && isUniqueViolation(err) {
		err = fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return &WriteError{Table: table, Err: err}
}

// NewWriteError wraps err the same way the SQL repositories do.
func NewWriteError(table string, err error) error { return writeErr(table, err) }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
