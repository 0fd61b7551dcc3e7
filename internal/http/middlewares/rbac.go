package middlewares

import (
	"net/http"

	"github.com/geocoder89/catalogapi/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireCapability is the access control gate. It must run after one of the
// Require* authenticators; a missing principal is refused, not a panic.
func (m *AuthMiddleware) RequireCapability(required auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)

		if !ok {
			m.obs.AccessDenied(string(required))
			abortError(c, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}

		if err := p.Authorize(required); err != nil {
			m.obs.AccessDenied(string(required))
			abortError(c, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}
		c.Next()
	}
}
