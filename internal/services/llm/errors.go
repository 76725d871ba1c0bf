package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Sentinel errors classifying backend failures. Callers map these to
// terminal failure reasons; only connection and timeout failures are
// retried inside the backend itself.
var (
	// ErrModelUnavailable means the model server refused or dropped the
	// connection after all retries.
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrModelTimeout means a single call exceeded its deadline after all
	// retries.
	ErrModelTimeout = errors.New("model call timed out")
)

// IsRetryable reports whether an error is worth another attempt.
// A well-formed error response from the model (bad request, auth) is not.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrModelTimeout) {
		return true
	}
	return isConnectionError(err) || isTimeoutError(err)
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "EOF")
}

// classify converts a transport error into the matching sentinel, keeping
// the original as the wrapped cause.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isTimeoutError(err):
		return errors.Join(ErrModelTimeout, err)
	case isConnectionError(err):
		return errors.Join(ErrModelUnavailable, err)
	default:
		return err
	}
}
