// Package db provides PostgreSQL database utilities for the filebox service.
//
// This package wraps [github.com/jackc/pgx/v5/pgxpool] to provide connection pooling,
// health checks, and database migrations with sensible defaults for production workloads.
//
// # Features
//
//   - Connection pooling with configurable limits and timeouts
//   - Automatic retry logic with exponential backoff during startup
//   - Health check function compatible with standard health check interfaces
//   - Database migrations using [github.com/pressly/goose/v3]
//
// # Usage
//
// Basic connection setup:
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		"github.com/dmitrymomot/filebox/pkg/db"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		pool, err := db.Connect(ctx, db.Config{
//			ConnectionString: os.Getenv("DATABASE_URL"),
//			MaxOpenConns:     10,
//			MinConns:         2,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		closeDB := db.Shutdown(pool)
//		defer closeDB(ctx)
//	}
//
// Zero-valued Config fields keep the pgx defaults parsed from the connection
// string, so only the settings that matter for a deployment need to be set.
//
// # Health Checks
//
// The [Healthcheck] function returns a closure suitable for readiness probes:
//
//	checks := health.Checks{
//		"database": db.Healthcheck(pool),
//	}
//
// # Migrations
//
// Run database migrations using embedded SQL files:
//
//	import (
//		"context"
//		"embed"
//		"log/slog"
//
//		"github.com/dmitrymomot/filebox/pkg/db"
//	)
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := db.Migrate(ctx, pool, migrations, "schema_migrations", logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Error Handling
//
// The package defines sentinel errors for common failure modes:
//
//   - [ErrFailedToParseDBConfig] - Invalid connection string format
//   - [ErrFailedToOpenDBConnection] - Connection failed after all retries
//   - [ErrHealthcheckFailed] - Database ping failed
//   - [ErrSetDialect] - Migration dialect configuration error
//   - [ErrApplyMigrations] - Migration execution failed
//
// Errors are wrapped using [errors.Join] to preserve the original error context.
package db
