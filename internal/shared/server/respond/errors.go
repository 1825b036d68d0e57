package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/telemetry"
)

// Error codes shared by handlers.
const (
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeUnauthorized      = "unauthorized"
	CodeRateLimited       = "rate_limited"
	CodePayloadTooLarge   = "payload_too_large"
	CodeInternal          = "internal_error"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// context keys written by the middleware and applications handler
var logContextKeys = map[string]string{
	"requestId":     "request_id",
	"userId":        "user_id",
	"applicationId": "application_id",
	"formKey":       "form_key",
}

// Error logs and sends a standardized error response, aborting the chain.
// Server errors log at error level; client errors at info.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":  status,
		"code":    code,
		"message": message,
		"path":    c.Request.URL.Path,
		"method":  c.Request.Method,
	}
	for ctxKey, logKey := range logContextKeys {
		if v := c.GetString(ctxKey); v != "" {
			fields[logKey] = v
		}
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Info("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// StatusFor returns the HTTP status that goes with a shared error code.
func StatusFor(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Code sends an error whose status is derived from code.
func Code(c *gin.Context, code, message string, details interface{}) {
	Error(c, StatusFor(code), code, message, details)
}
