package gateway

import (
	"errors"
	"fmt"
)

// ServiceError reports a failed gateway call: transport error, non-2xx
// status, or a response that could not be decoded.
type ServiceError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s failed: status=%d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// MalformedResponseError describes a response missing an expected array
// field. It is reported through the gateway's hook and the field is treated
// as an empty list; it is never returned from a call.
type MalformedResponseError struct {
	Op    string
	Field string
}

func (e MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: response missing array field %q, treated as empty", e.Op, e.Field)
}

// IsServiceError reports whether err is or wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

func serviceErr(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: err.Error(), Err: err}
}
