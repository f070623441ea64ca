package catalog

import "errors"

var (
	// ErrInvalidPayload marks a remote response that failed schema
	// validation. Callers treat it exactly like a network failure.
	ErrInvalidPayload = errors.New("catalog: invalid payload")

	// ErrProductNotFound is returned when the remote catalog has no product
	// with the requested identifier.
	ErrProductNotFound = errors.New("catalog: product not found")
)
