package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/catalogapi/internal/resource"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusNotFound, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondStoreError maps collection errors onto the envelope. Anything it does
// not recognise is a persistence failure: 500 with the message only.
func RespondStoreError(ctx *gin.Context, log *slog.Logger, err error) {
	var verr *resource.ValidationError

	switch {
	case errors.Is(err, resource.ErrNotFound):
		RespondNotFound(ctx, "not_found", "Record not found")
	case errors.Is(err, resource.ErrInvalidModel):
		RespondNotFound(ctx, "invalid_model", "Invalid Model")
	case errors.As(err, &verr):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": verr.Problems})
	default:
		_ = ctx.Error(err)
		log.ErrorContext(ctx.Request.Context(), "store_error", "route", ctx.FullPath(), "err", err)
		RespondInternal(ctx, err.Error())
	}
}
