// Package gateway holds what the card and wallet adapters share: the error
// type, the retry helper and the JSON request plumbing.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error is a non-2xx answer from a payment gateway.
type Error struct {
	Gateway    string
	Code       string
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s gateway error: %s (code: %s, status: %d)", e.Gateway, e.Message, e.Code, e.StatusCode)
}

// IsGatewayError extracts a gateway Error from err.
func IsGatewayError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// IsNotFound reports whether the gateway does not know the requested object.
func IsNotFound(err error) bool {
	gwErr, ok := IsGatewayError(err)
	return ok && gwErr.StatusCode == http.StatusNotFound
}

// IsTimeout reports whether the call ran out of time. Callers treat this as
// "not confirmed yet".
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRetryable reports whether a call may succeed when repeated.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.StatusCode >= 500 || gwErr.StatusCode == http.StatusTooManyRequests
	}

	// transport failures
	return true
}
