package repositories

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no document matches the lookup.
var ErrNotFound = errors.New("not found")

// DuplicateKeyError reports a unique-constraint violation and names the
// offending field.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key on field %q", e.Field)
}

// IsDuplicateKey reports whether err is a unique-constraint violation and,
// if so, which field collided.
func IsDuplicateKey(err error) (string, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}
