package stage

import (
	"errors"
	"fmt"

	"ideaspark/internal/session"
)

// ValidationError means an intent's guard failed. State is unchanged.
type ValidationError struct {
	Stage  session.Stage
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Reason)
}

// BusyError means an intent arrived while a gateway call was in flight.
type BusyError struct {
	Intent string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("%s rejected: a request is already in progress", e.Intent)
}

// ErrStaleResponse is returned when a gateway response arrives for a request
// that is no longer current. The response is discarded.
var ErrStaleResponse = errors.New("stale response discarded")

func invalid(stage session.Stage, format string, args ...any) error {
	return &ValidationError{Stage: stage, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBusy reports whether err is a *BusyError.
func IsBusy(err error) bool {
	var be *BusyError
	return errors.As(err, &be)
}
