package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Benchmark error taxonomy. Failures are matched with errors.Is, wrapped
// errors keep their cause.
var (
	ErrInitializationFailed   = errors.New("initialization failed")
	ErrActionTimedOut         = errors.New("action timed out")
	ErrRunTimedOut            = errors.New("run timed out")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrEmptyScript            = errors.New("action script is empty")
	ErrUnknownLibrary         = errors.New("unknown library")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrSessionBusy            = errors.New("another library run is active")
)

// ActionTimedOutError reports the action whose completion signal never fired
type ActionTimedOutError struct {
	Index   int
	Action  Action
	Timeout time.Duration
}

func (e *ActionTimedOutError) Error() string {
	return fmt.Sprintf("action %d %s did not complete within %s", e.Index, e.Action, e.Timeout)
}

// Is lets errors.Is(err, ErrActionTimedOut) match
func (e *ActionTimedOutError) Is(target error) bool {
	return target == ErrActionTimedOut
}

// InitializationError marks err as a library initialization failure
func InitializationError(library string, err error) error {
	return errors.Mark(errors.Wrapf(err, "initializing %s", library), ErrInitializationFailed)
}

// PersistenceError marks err as a persistence failure
func PersistenceError(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrPersistenceUnavailable)
}

// Kind maps an error to the tag recorded in a failed result row
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInitializationFailed):
		return "InitializationFailed"
	case errors.Is(err, ErrActionTimedOut), errors.HasType(err, (*ActionTimedOutError)(nil)):
		return "ActionTimedOut"
	case errors.Is(err, ErrRunTimedOut):
		return "RunTimedOut"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "PersistenceUnavailable"
	case errors.Is(err, ErrUnknownLibrary):
		return "UnknownLibrary"
	case errors.Is(err, ErrEmptyScript):
		return "EmptyScript"
	case errors.Is(err, ErrSessionBusy):
		return "SessionBusy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "RunFailed"
	}
}
