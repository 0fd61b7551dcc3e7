package auth

import (
	"errors"
	"net/http"

	"github.com/geocoder89/catalogapi/internal/domain/user"
)

var (
	// ErrAuthentication covers every credential failure: missing or malformed
	// header, unknown user, wrong password, bad or expired token.
	ErrAuthentication = errors.New("invalid login")

	// ErrForbidden means the principal lacks the capability a route needs.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the identity attached to an authenticated request.
type Principal struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
}

func PrincipalOf(u user.User) Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

func (p Principal) Capabilities() []Capability {
	return CapabilitiesFor(p.Role)
}

// Authorize reports ErrForbidden unless the principal's role grants c.
func (p Principal) Authorize(c Capability) error {
	if !Can(p.Role, c) {
		return ErrForbidden
	}
	return nil
}

// Authenticator is one stage of the auth pipeline: it either yields a
// principal for the request or fails with ErrAuthentication.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (Principal, error)
}
