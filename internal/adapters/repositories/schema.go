package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect selects the DDL flavour for InitSchema.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func schemaStatements(d Dialect) []string {
	createdAt, float := "TEXT", "REAL"
	if d == Postgres {
		createdAt, float = "TIMESTAMPTZ", "DOUBLE PRECISION"
	}

	createRunsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		problem_name TEXT NOT NULL,
		created_at %[1]s NOT NULL,
		status TEXT NOT NULL,
		makespan %[2]s NOT NULL,
		num_customers INTEGER NOT NULL,
		num_drones INTEGER NOT NULL,
		num_truck_customers INTEGER NOT NULL,
		num_drone_customers INTEGER NOT NULL,
		truck_waiting %[2]s NOT NULL,
		drone_waiting %[2]s NOT NULL,
		elapsed_seconds %[2]s NOT NULL,
		solution_json TEXT NOT NULL
	);
	`, createdAt, float)

	createRunsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_runs_created_at
	ON runs(created_at);
	`

	createLegCacheQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS truck_leg_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters %[1]s NOT NULL,
		duration_seconds %[1]s NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`, float)

	createLegIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_truck_leg_cache_destination_origin
	ON truck_leg_cache(destination, origin);
	`

	return []string{createRunsQuery, createRunsIndexQuery, createLegCacheQuery, createLegIndexQuery}
}

// Create the run history and truck leg cache tables.
func InitSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements(d) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
