package db

import "errors"

// Sentinel errors wrapped by Connect, Migrate, and Healthcheck. Callers
// match them with errors.Is; the joined cause carries the driver detail.
var (
	ErrFailedToParseDBConfig    = errors.New("db: failed to parse database configuration")
	ErrFailedToOpenDBConnection = errors.New("db: failed to open database connection")
	ErrHealthcheckFailed        = errors.New("db: healthcheck failed")

	ErrSetDialect      = errors.New("db migrator: failed to set dialect")
	ErrApplyMigrations = errors.New("db migrator: failed to apply migrations")
)
