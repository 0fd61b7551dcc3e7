package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/catalogapi/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	schemeBasic  = "basic"
	schemeBearer = "bearer"
)

// AuthObserver receives auth pipeline outcomes; observability.Prom
// implements it.
type AuthObserver interface {
	AuthFailed(scheme string)
	AccessDenied(capability string)
}

type noopAuthObserver struct{}

func (noopAuthObserver) AuthFailed(string)   {}
func (noopAuthObserver) AccessDenied(string) {}

type AuthMiddleware struct {
	basic  auth.Authenticator
	bearer auth.Authenticator
	obs    AuthObserver
	log    *slog.Logger
}

func NewAuthMiddleware(basic, bearer auth.Authenticator, obs AuthObserver, log *slog.Logger) *AuthMiddleware {
	if obs == nil {
		obs = noopAuthObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{basic: basic, bearer: bearer, obs: obs, log: log}
}

func (m *AuthMiddleware) RequireBasic() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c, schemeBasic, m.basic)
	}
}

func (m *AuthMiddleware) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c, schemeBearer, m.bearer)
	}
}

// RequireAny accepts either scheme, picked from the Authorization header.
func (m *AuthMiddleware) RequireAny() gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, _, _ := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		if strings.EqualFold(scheme, schemeBasic) {
			m.authenticate(c, schemeBasic, m.basic)
			return
		}
		m.authenticate(c, schemeBearer, m.bearer)
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, scheme string, a auth.Authenticator) {
	p, err := a.AuthenticateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrAuthentication) {
			m.obs.AuthFailed(scheme)
			// one body for every cause so callers cannot enumerate accounts
			abortError(c, http.StatusForbidden, "forbidden", "Invalid Login")
			return
		}

		_ = c.Error(err)
		m.log.ErrorContext(c.Request.Context(), "authentication_backend_error", "scheme", scheme, "err", err)
		abortError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	c.Set(CtxPrincipal, p)
	c.Next()
}

func PrincipalFromContext(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
