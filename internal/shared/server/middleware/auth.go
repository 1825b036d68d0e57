package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/shared/auth"
	"onboarding-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
)

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// AuthOptions configures Auth.
type AuthOptions struct {
	Verifier TokenVerifier
	// AllowHeaderIdentity accepts X-User-Id without a token. Dev only.
	AllowHeaderIdentity bool
	// PublicPaths skip authentication entirely.
	PublicPaths []string
}

// Auth validates bearer tokens and stores the applicant identity in context.
func Auth(opts AuthOptions) gin.HandlerFunc {
	public := make(map[string]struct{}, len(opts.PublicPaths))
	for _, p := range opts.PublicPaths {
		public[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := public[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") || opts.Verifier == nil {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			claims, err := opts.Verifier.Verify(token)
			if token == "" || err != nil {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}
			c.Set(userIDKey, claims.Subject)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			c.Next()
			return
		}

		if opts.AllowHeaderIdentity {
			if userID := strings.TrimSpace(c.GetHeader("X-User-Id")); userID != "" {
				c.Set(userIDKey, userID)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing identity", nil)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
