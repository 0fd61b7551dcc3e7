package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/geocoder89/catalogapi/internal/domain/user"
	"github.com/geocoder89/catalogapi/internal/security"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type BasicAuthenticator struct {
	users UserReader
}

func NewBasicAuthenticator(users UserReader) *BasicAuthenticator {
	return &BasicAuthenticator{users: users}
}

// Authenticate returns ErrAuthentication for unknown users and wrong
// passwords alike. Store failures other than not-found are returned wrapped
// so callers can report them as internal errors.
func (a *BasicAuthenticator) Authenticate(ctx context.Context, username, password string) (user.User, error) {
	if username == "" {
		security.BurnCompare(password)
		return user.User{}, ErrAuthentication
	}

	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			security.BurnCompare(password)
			return user.User{}, ErrAuthentication
		}
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.User{}, ErrAuthentication
	}
	return u, nil
}

// AuthenticateRequest is the Basic stage of the pipeline.
func (a *BasicAuthenticator) AuthenticateRequest(r *http.Request) (Principal, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return Principal{}, ErrAuthentication
	}

	u, err := a.Authenticate(r.Context(), username, password)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalOf(u), nil
}
