package api

import (
	"errors"
	"fmt"
)

// Error is returned for any non-2xx response from the remote API. It carries
// the raw status and (truncated) body so callers can inspect the failure.
type Error struct {
	Status int
	Body   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: unexpected status %d", e.Status)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsClientError reports whether err is an *Error with a 4xx status.
func IsClientError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}
