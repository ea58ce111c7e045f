package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a failed call to a provider API. StatusCode 0 means no HTTP
// response arrived at all (network error, timeout).
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Type       string // provider's error classification, when given
	Code       string // provider-specific error code, when given
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient reports whether a retry could plausibly succeed: network
// failures, 429 throttling, and 5xx server errors.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

func isTransientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsTransient()
}

// ParseError means the model answered but the answer did not decode into
// the expected JSON schema. Callers usually downgrade this to zero results
// instead of failing the surrounding operation.
type ParseError struct {
	Provider string
	Output   string // raw model output that failed to decode
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable model output: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
