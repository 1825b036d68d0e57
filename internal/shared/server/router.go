package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/applications"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/server/respond"
	"onboarding-backend/internal/shared/storage/db"
)

const (
	healthPath       = "/api/v1/health"
	metricsPath      = "/metrics"
	healthPingBudget = 2 * time.Second
)

// RouterDeps carries everything the router needs. DB may be nil when the
// service runs on in-memory repositories.
type RouterDeps struct {
	Config             config.Config
	DB                 *sql.DB
	Verifier           middleware.TokenVerifier
	ApplicationHandler *applications.Handler
	RateLimiter        *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	cfg := deps.Config
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(middleware.AuthOptions{
			Verifier:            deps.Verifier,
			AllowHeaderIdentity: cfg.IsDevLike(),
			PublicPaths:         []string{healthPath, metricsPath},
		}),
		middleware.RateLimit(rateLimitConfig(cfg, deps.RateLimiter)),
	)

	r.GET(metricsPath, metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))
	registerMeRoutes(api)
	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	rules := map[string]middleware.RateLimitRule{}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		rules[middleware.GroupRead] = middleware.RateLimitRule{Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
		// writes get half the read budget
		rules[middleware.GroupWrite] = middleware.RateLimitRule{Rate: cfg.RateLimitRPS / 2, Burst: max(1, cfg.RateLimitBurst/2)}
	}
	return middleware.RateLimitConfig{
		Rules:    rules,
		GroupFor: middleware.MethodGroup,
		Limiter:  limiter,
	}
}

func healthHandler(sqlDB *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sqlDB == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true, "database": "memory"})
			return
		}
		if err := db.Ping(c.Request.Context(), sqlDB, healthPingBudget); err != nil {
			respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unreachable"})
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"ok": true, "database": "postgres"})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
