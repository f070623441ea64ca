package cart

import "errors"

var (
	// ErrInvalidPayload marks a remote response that failed schema
	// validation.
	ErrInvalidPayload = errors.New("cart: invalid payload")

	// ErrNoCart means the user has no remote cart object yet.
	ErrNoCart = errors.New("cart: no remote cart for user")

	// ErrEmptyCart is returned when an order is submitted from an empty
	// cart.
	ErrEmptyCart = errors.New("cart: cart is empty")

	// ErrOrderFailed wraps a failed order submission. The local cart is
	// preserved so the user can retry.
	ErrOrderFailed = errors.New("cart: order submission failed")
)
