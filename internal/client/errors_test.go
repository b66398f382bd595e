package client

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &NetworkError{Err: errors.New("connection refused")}, true},
		{"timeout error", &TimeoutError{Err: errors.New("deadline exceeded")}, true},
		{"server error", &APIError{Status: http.StatusBadGateway}, true},
		{"client error", &APIError{Status: http.StatusUnprocessableEntity}, false},
		{"csrf failure", &CSRFValidationError{APIError{Status: http.StatusForbidden}}, false},
		{"auth required", &AuthenticationRequiredError{}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	require.ErrorIs(t, &NetworkError{Err: cause}, cause)
	require.ErrorIs(t, &TimeoutError{Err: cause}, cause)
}
