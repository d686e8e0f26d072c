package main

// Run database migrations:
//   go run ./cmd/migrate
//   go run ./cmd/migrate -down
//   go run ./cmd/migrate -status

import (
	"context"
	"flag"
	"os"

	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/telemetry"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	status := flag.Bool("status", false, "print the current schema version and exit")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	opts := db.OptionsFor(db.DefaultMigrateOptions(), cfg.DBPool)
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *status:
	case *down:
		if err := db.RollbackLast(ctx, sqlDB); err != nil {
			telemetry.Error("migrate.down_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			telemetry.Error("migrate.up_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}

	version, err := db.SchemaVersion(ctx, sqlDB)
	if err != nil {
		telemetry.Error("migrate.version_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"version": version})
}
