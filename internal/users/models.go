// Package users owns authentication identity: logging in against the remote
// demo API, caching user records and persisting the numeric user id that
// serves as the session marker.
package users

import "strconv"

// UserID is the nominal identifier of a user, distinct from product and cart
// identifiers at the type level.
type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// User is an account record as served by the remote API.
type User struct {
	ID        UserID `json:"id"        validate:"required,gt=0"`
	Username  string `json:"username"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Gender    string `json:"gender"    validate:"required,oneof=male female other"`
	Image     string `json:"image"     validate:"required,url"`
}

// credentials is the login request body. The remote API wants the session
// length inline with the credentials.
type credentials struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ExpiresInMins int    `json:"expiresInMins"`
}
