package backend

import (
	"errors"
	"fmt"
)

// ErrNetwork wraps transport-level failures: DNS, refused connections,
// timeouts. These are the only failures that flip the connectivity monitor.
var ErrNetwork = errors.New("network failure")

// StatusError is a non-2xx HTTP response from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned http %d: %s", e.Code, e.Body)
}

// IsNetworkError reports a transport failure (retryable, flips connectivity).
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsClientError reports a 4xx response (permanent, never retried).
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

// IsServerError reports a 5xx response (retryable on the next tick).
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500
}
