package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/catalogapi/internal/auth"
	"github.com/geocoder89/catalogapi/internal/domain/user"
	"github.com/geocoder89/catalogapi/internal/http/middlewares"
	"github.com/geocoder89/catalogapi/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, role user.Role) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(users UserStore, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

type userView struct {
	ID           int64             `json:"id"`
	Username     string            `json:"username"`
	Role         user.Role         `json:"role"`
	Capabilities []auth.Capability `json:"capabilities"`
}

type sessionResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func viewOf(p auth.Principal) userView {
	return userView{
		ID:           p.ID,
		Username:     p.Username,
		Role:         p.Role,
		Capabilities: p.Capabilities(),
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role := user.RoleUser
	if req.Role != "" {
		r, ok := user.ParseRole(req.Role)
		if !ok {
			RespondBadRequest(ctx, "Invalid role", nil)
			return
		}
		role = r
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": []FieldError{{
				Field:   "password",
				Rule:    "max",
				Param:   strconv.Itoa(security.MaxPasswordBytes),
				Message: "must be at most 72 bytes",
			}}})
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, req.Username, hash, role)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			RespondConflict(ctx, "username_taken", "Username is already in use.")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "signup_failed", "err", err)
		RespondInternal(ctx, err.Error())
		return
	}

	h.respondSession(ctx, http.StatusCreated, auth.PrincipalOf(u))
}

// SignIn runs behind RequireBasic, so the principal is already verified.
func (h *AuthHandler) SignIn(ctx *gin.Context) {
	p, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusForbidden, "forbidden", "Invalid Login", nil)
		return
	}

	h.respondSession(ctx, http.StatusOK, p)
}

func (h *AuthHandler) respondSession(ctx *gin.Context, status int, p auth.Principal) {
	token, err := h.tokens.Issue(p)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(status, sessionResponse{Token: token, User: viewOf(p)})
}

func (h *AuthHandler) Secret(ctx *gin.Context) {
	p, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusForbidden, "forbidden", "Invalid Login", nil)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the secret area",
		"user":    viewOf(p),
	})
}

func (h *AuthHandler) ListUsers(ctx *gin.Context) {
	users, err := h.users.List(ctx.Request.Context())
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list_users_failed", "err", err)
		RespondInternal(ctx, err.Error())
		return
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": names,
		"count": len(names),
	})
}
