package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"onboarding-backend/internal/applications"
	"onboarding-backend/internal/queue"
	"onboarding-backend/internal/shared/auth"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/server"
	"onboarding-backend/internal/shared/server/middleware"
	"onboarding-backend/internal/shared/storage/db"
	"onboarding-backend/internal/shared/telemetry"
)

// App holds shared dependencies for the API and the worker.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Queue              queue.Client
	Verifier           *auth.Verifier
	ApplicationsRepo   applications.Repo
	ApplicationService *applications.Service
	ApplicationHandler *applications.Handler
}

// Options overrides pieces of the dependency graph, mainly for tests.
type Options struct {
	// Queue replaces the SQS client built from ONB_SQS_QUEUE_URL.
	Queue queue.Client
	// Repo replaces the repository chosen from DATABASE_URL.
	Repo applications.Repo
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(cfg, Options{})
}

// BuildWith is Build with explicit overrides.
func BuildWith(cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	if opts.Repo != nil {
		app.ApplicationsRepo = opts.Repo
	} else {
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.DB = sqlDB
		if sqlDB != nil {
			app.ApplicationsRepo = &applications.PGRepo{DB: sqlDB}
		} else {
			app.ApplicationsRepo = applications.NewMemoryRepo()
		}
	}

	if opts.Queue != nil {
		app.Queue = opts.Queue
	} else {
		queueClient, err := buildQueue(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.Queue = queueClient
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.IsDevLike())
	if err != nil {
		return nil, fmt.Errorf("auth verifier: %w", err)
	}
	app.Verifier = verifier

	app.ApplicationService = &applications.Service{
		Repo:  app.ApplicationsRepo,
		Queue: app.Queue,
	}
	app.ApplicationHandler = applications.NewHandler(app.ApplicationService)
	if app.ApplicationHandler == nil {
		return nil, errors.New("failed to initialize handlers")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             cfg,
		DB:                 app.DB,
		Verifier:           app.Verifier,
		ApplicationHandler: app.ApplicationHandler,
		RateLimiter:        middleware.NewRateLimiter(nil),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Info("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.DetectProfile())
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Error("bootstrap.db_connect_failed", map[string]any{
				"error":    err.Error(),
				"fallback": "memory",
			})
			return nil, nil
		}
		return nil, err
	}

	if cfg.IsDevLike() {
		// dev databases are migrated on boot; other envs run cmd/migrate
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.ReviewQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.ReviewQueueURL)
}
