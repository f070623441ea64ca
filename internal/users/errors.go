package users

import "errors"

var (
	// ErrLoginFailed means the remote API rejected the credentials. It is a
	// recoverable, user-facing condition and never clears an existing
	// session.
	ErrLoginFailed = errors.New("users: login failed")

	// ErrNoSession is returned by operations that need an authenticated
	// user when no session is persisted.
	ErrNoSession = errors.New("users: no active session")

	// ErrInvalidPayload marks a remote response that failed schema
	// validation.
	ErrInvalidPayload = errors.New("users: invalid payload")
)
