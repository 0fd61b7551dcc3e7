package db

import (
	"context"
	"errors"

	"github.com/geocoder89/catalogapi/internal/domain/user"
	"github.com/geocoder89/catalogapi/internal/security"
)

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, username, passwordHash string, role user.Role) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin account when credentials are
// configured and the username is still free. It is a no-op otherwise.
func EnsureAdminUser(ctx context.Context, users AdminStore, username, password string) (created bool, err error) {
	if username == "" || password == "" {
		return false, nil
	}

	_, err = users.GetByUsername(ctx, username)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return false, err
	}

	_, err = users.Create(ctx, username, hash, user.RoleAdmin)

	if errors.Is(err, user.ErrUsernameTaken) {
		// another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
