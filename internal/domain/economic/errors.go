package economic

import (
	"errors"
	"fmt"
)

// Error categories. Use errors.Is to tell them apart.
var (
	// ErrTransportFailure means the remote call could not be completed
	// (network, authentication rejection, malformed response).
	ErrTransportFailure = errors.New("economic: transport failure")
	// ErrNotFound means the remote side has no record for the given handle.
	ErrNotFound = errors.New("economic: record not found")
	// ErrInvalidState means the entity's lifecycle state forbids the operation.
	ErrInvalidState = errors.New("economic: invalid entity state")
)

// Validation errors
var (
	ErrUnknownHandleField = errors.New("economic: unknown handle field")
	ErrInvalidCredentials = errors.New("economic: invalid credentials")
	ErrMissingTransport   = errors.New("economic: transport is required")
)

// RemoteError is a fault reported by the remote service for one operation.
// It unwraps to its category (ErrNotFound or ErrTransportFailure).
type RemoteError struct {
	Operation string
	Code      int
	Message   string
	Category  error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("economic: %s failed (%d): %s", e.Operation, e.Code, e.Message)
}

// Unwrap returns the error category
func (e *RemoteError) Unwrap() error {
	if e.Category == nil {
		return ErrTransportFailure
	}
	return e.Category
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
