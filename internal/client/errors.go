package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkError is a connection-level failure: DNS, dial, reset. Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is an abort due to the per-request deadline. Kept distinct
// from NetworkError so callers can tell a slow backend from an unreachable
// one; retried under the same policy.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("request timed out: %v", e.Err) }
func (e *TimeoutError) Unwrap() error { return e.Err }

// APIError is a structured non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// CSRFValidationError is an APIError the server marked as a CSRF failure.
// Never retried; recovery happens through token clearing and a guarded reload.
type CSRFValidationError struct {
	APIError
}

func (e *CSRFValidationError) Error() string {
	return fmt.Sprintf("csrf validation failed: status %d: %s", e.Status, e.Message)
}

// AuthenticationRequiredError signals a 401: the session is gone and the
// caller has been routed back to login.
type AuthenticationRequiredError struct{}

func (e *AuthenticationRequiredError) Error() string { return "authentication required" }

// isRetryable classifies errors for the retry policy: network failures,
// timeouts and 5xx responses are retried; CSRF failures and other 4xx are
// terminal.
func isRetryable(err error) bool {
	var netErr *NetworkError
	var timeoutErr *TimeoutError
	if errors.As(err, &netErr) || errors.As(err, &timeoutErr) {
		return true
	}

	var csrfErr *CSRFValidationError
	if errors.As(err, &csrfErr) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return false
}
