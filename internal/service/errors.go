package service

import (
	"errors"
	"fmt"
)

// ErrBodyParse is returned when a POST body is not valid JSON.
var ErrBodyParse = errors.New("failed to parse request body")

// UpstreamError reports a transport-level failure reaching the upstream:
// connection refused, DNS, TLS, timeout or cancellation.
type UpstreamError struct {
	URL string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream unreachable %s: %v", e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// BadResponseError reports an upstream reply whose body is not valid JSON.
type BadResponseError struct {
	Status int
	Raw    string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("invalid server response (status %d)", e.Status)
}
