package users

import (
	"context"
	"fmt"

	"github.com/abgdnv/storefront/pkg/api"
	"github.com/go-playground/validator/v10"
)

// sessionMinutes is the session length requested on login.
const sessionMinutes = 60

// API wraps the remote auth/user endpoints.
type API struct {
	client   *api.Client
	validate *validator.Validate
}

func NewAPI(client *api.Client) *API {
	return &API{
		client:   client,
		validate: validator.New(),
	}
}

// Login exchanges credentials for a user record. A 4xx from the remote API
// maps to ErrLoginFailed; anything else propagates as-is.
func (a *API) Login(ctx context.Context, username, password string) (User, error) {
	body := credentials{Username: username, Password: password, ExpiresInMins: sessionMinutes}
	var user User
	if err := a.client.Post(ctx, "/auth/login", body, &user); err != nil {
		if api.IsClientError(err) {
			return User{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
		return User{}, fmt.Errorf("login: %w", err)
	}
	if err := a.validate.Struct(user); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return user, nil
}

// FetchUser retrieves a user record by identifier.
func (a *API) FetchUser(ctx context.Context, id UserID) (User, error) {
	var user User
	if err := a.client.Get(ctx, "/users/"+id.String(), &user); err != nil {
		return User{}, fmt.Errorf("fetch user %s: %w", id, err)
	}
	if err := a.validate.Struct(user); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return user, nil
}
