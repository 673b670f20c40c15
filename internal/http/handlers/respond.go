package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/storejobs/internal/domain/job"
	"github.com/geocoder89/storejobs/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// requestTimeout bounds store calls by the request context, which carries the
// actor and span that logging picks up downstream.
func requestTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func requestIDFrom(ctx *gin.Context) string {
	return middlewares.RequestIDFromContext(ctx)
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

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondValidation reports field violations in the same shape as binding errors.
func RespondValidation(ctx *gin.Context, fields ...FieldError) {
	RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fields})
}

// respondJobValidation unwraps a job.ValidationError; false means err was something else.
func respondJobValidation(ctx *gin.Context, err error) bool {
	var vErr *job.ValidationError
	if !errors.As(err, &vErr) {
		return false
	}

	fields := make([]FieldError, 0, len(vErr.Violations))
	for _, v := range vErr.Violations {
		fields = append(fields, FieldError{
			Field:   v.Field,
			Rule:    v.Rule,
			Param:   v.Param,
			Message: v.Message,
		})
	}
	RespondValidation(ctx, fields...)
	return true
}
