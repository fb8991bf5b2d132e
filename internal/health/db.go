// Package health provides dependency checks for the readiness endpoint.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSchemaMissing is returned when the database is reachable but the
// required tables have not been migrated.
var ErrSchemaMissing = errors.New("database schema not migrated")

// requiredTables must exist before the server can load ranking data.
var requiredTables = []string{"places", "reviews"}

// DBChecker implements health checking for the Postgres database.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{
		db: db,
	}
}

// HealthCheck pings the database and confirms the schema is in place.
func (d *DBChecker) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	for _, table := range requiredTables {
		var exists bool
		if err := d.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists); err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: table %s", ErrSchemaMissing, table)
		}
	}
	return nil
}
