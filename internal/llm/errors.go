package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by NewProvider when no provider is selected.
var ErrNotConfigured = errors.New("no LLM provider configured")

// RateLimitError means the provider answered 429.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return "llm rate limited: " + e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// UnavailableError wraps transport and server failures.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return "llm unavailable: " + e.Err.Error() }
func (e *UnavailableError) Unwrap() error { return e.Err }

// InvalidResponseError means the model's reply did not match the schema.
type InvalidResponseError struct {
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid llm response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// classify maps an SDK status code to one of the typed errors.
func classify(status int, err error) error {
	if status == 429 {
		return &RateLimitError{Err: err}
	}
	return &UnavailableError{Err: err}
}
