package attachment

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed requests; nothing has been written when it is returned.
	ErrValidation = errors.New("validation failed")

	// ErrOutOfScope is returned when a key does not carry the requesting task's prefix.
	ErrOutOfScope = fmt.Errorf("%w: invalid blob name for task", ErrValidation)

	// ErrTooLarge is returned when a declared or actual size exceeds the upload cap.
	ErrTooLarge = errors.New("file too large")

	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("attachment not found")

	// ErrStore wraps failures of the backing object store.
	ErrStore = errors.New("object store failure")

	// ErrStream is returned when reading from the store fails mid-transfer.
	ErrStream = errors.New("stream interrupted")

	// ErrRangeNotSatisfiable is matched by *RangeError.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// RangeError reports a byte range that lies outside an object of Size bytes.
type RangeError struct {
	Size int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range not satisfiable for %d-byte object", e.Size)
}

func (e *RangeError) Unwrap() error { return ErrRangeNotSatisfiable }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
