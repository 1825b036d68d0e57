package main

// Apply the embedded schema migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/storage/db"
	"onboarding-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.failed", map[string]any{"error": "DATABASE_URL is required"})
		os.Exit(1)
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.ProfileMigrate)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		telemetry.Error("migrate.version_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.completed", map[string]any{"version": version})
}
