package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/server/respond"
	"onboarding-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// The panic is logged with whatever form context the handler had set.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			telemetry.Error("http.panic", map[string]any{
				"request_id":     RequestIDFromContext(c),
				"user_id":        UserIDFromContext(c),
				"application_id": c.GetString(ApplicationIDKey),
				"form_key":       c.GetString(FormKeyKey),
				"error":          fmt.Sprint(rec),
				"stack":          string(debug.Stack()),
				"path":           c.Request.URL.Path,
				"method":         c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "unexpected server error", nil)
		}()
		c.Next()
	}
}
