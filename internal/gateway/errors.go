package gateway

import (
	"errors"
	"fmt"

	"learningfun/internal/validation"
)

var (
	// ErrNotAuthenticated is returned when the context carries no signed-in session.
	ErrNotAuthenticated = errors.New("sign in required")
	// ErrNotFound is returned when the row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may see a row but not change it.
	ErrForbidden = errors.New("forbidden")
)

// RemoteError wraps a failure of the backing store. Callers may retry the
// operation manually; the gateway never does.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// classified passes through errors the gateway already sorted and wraps
// anything else, such as a failed commit, as a RemoteError.
func classified(err error, op string) error {
	var re *RemoteError
	var ve validation.ValidationError
	switch {
	case errors.As(err, &re), errors.As(err, &ve),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden), errors.Is(err, ErrNotAuthenticated):
		return err
	}
	return remote(op, err)
}
