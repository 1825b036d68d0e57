package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	ApplicationIDKey    = "applicationId"
	FormKeyKey          = "formKey"
	StatusTransitionKey = "statusTransition"
)

// Logging emits one structured line per request. Server errors are logged at
// error level along with any errors handlers attached to the context.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"route":             c.FullPath(),
			"status":            c.Writer.Status(),
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"application_id":    c.GetString(ApplicationIDKey),
			"form_key":          c.GetString(FormKeyKey),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			telemetry.Error("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
