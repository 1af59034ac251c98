package grading

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidInput is returned for non-positive max marks, marks outside [0, max marks]
	// or missing identity fields when a result is first created. Bad input is never clamped.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLockedRecord is returned when a locked (finalized) result would be modified.
	ErrLockedRecord = errors.New("result is locked")
)

// EntryError reports the failure of a single batch entry.
type EntryError struct {
	Index     int    // position of the entry in the batch
	StudentID string // as submitted; may be empty
	Err       error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("entry %d (student %q): %v", e.Index, e.StudentID, e.Err)
}

func (e EntryError) Cause() error  { return e.Err }
func (e EntryError) Unwrap() error { return e.Err }

func IsInvalidInput(err error) bool { return errors.Cause(err) == ErrInvalidInput }

func IsLocked(err error) bool { return errors.Cause(err) == ErrLockedRecord }
