package auth

import (
	"slices"

	"github.com/geocoder89/catalogapi/internal/domain/user"
)

type Capability string

const (
	CapCreate Capability = "create"
	CapRead   Capability = "read"
	CapUpdate Capability = "update"
	CapDelete Capability = "delete"
)

// CapabilitiesFor returns a fresh copy of the fixed capability set of role.
// Unknown roles get nothing.
func CapabilitiesFor(role user.Role) []Capability {
	switch role {
	case user.RoleAdmin:
		return []Capability{CapCreate, CapRead, CapUpdate, CapDelete}
	case user.RoleEditor:
		return []Capability{CapCreate, CapRead, CapUpdate}
	case user.RoleWriter:
		return []Capability{CapCreate, CapRead}
	case user.RoleUser:
		return []Capability{CapRead}
	default:
		return []Capability{}
	}
}

func Can(role user.Role, c Capability) bool {
	return slices.Contains(CapabilitiesFor(role), c)
}
