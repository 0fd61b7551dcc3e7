package auth

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/catalogapi/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "catalogapi"
	accessTokenType = "access"
)

type Claims struct {
	UserID    int64     `json:"uid"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	TokenType string    `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HS256 bearer tokens. It holds no mutable state
// and is shared by all requests.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) Issue(p Principal) (string, error) {
	now := m.now().UTC()

	claims := Claims{
		UserID:    p.ID,
		Username:  p.Username,
		Role:      p.Role,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks signature, expiry and token type, then rebuilds the
// principal from the claims alone. The credential store is not consulted.
func (m *Manager) Verify(tokenStr string) (Principal, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Principal{}, ErrAuthentication
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return Principal{}, ErrAuthentication
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrAuthentication
	}
	if claims.TokenType != accessTokenType || claims.Username == "" {
		return Principal{}, ErrAuthentication
	}

	return Principal{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

// AuthenticateRequest is the Bearer stage of the pipeline.
func (m *Manager) AuthenticateRequest(r *http.Request) (Principal, error) {
	raw, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Principal{}, ErrAuthentication
	}
	return m.Verify(raw)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw := strings.TrimSpace(rest)
	return raw, raw != ""
}
