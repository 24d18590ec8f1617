package source

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("record set not found")

// NotFoundError reports a location with nothing behind it.
type NotFoundError struct {
	Location Location
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record set not found at %s", e.Location)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
