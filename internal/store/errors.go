package store

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRating = errors.New("post already has a rating")
	ErrAlreadyRated    = errors.New("post rating reference already set")
	ErrDuplicatePost   = errors.New("duplicate post")
	ErrUnitClosed      = errors.New("unit of work already committed or rolled back")
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
