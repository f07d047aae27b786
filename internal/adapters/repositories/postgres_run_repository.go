package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/platform/obs"
	"sidekick-route-service/internal/ports"
)

// Postgres-backed RunRepository, used through the pgx stdlib driver.
type PostgresRunRepository struct{ DB *sql.DB }

var _ ports.RunRepository = (*PostgresRunRepository)(nil)

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{DB: db}
}

func (p *PostgresRunRepository) SaveRun(ctx context.Context, run domain.RunRecord) (err error) {
	defer obs.Time(ctx, "runs.postgres.SaveRun")(&err)

	if p.DB == nil {
		return errors.New("postgres run repository: DB is nil")
	}
	if err := validateRun(run); err != nil {
		return err
	}

	query := `INSERT INTO runs (` + runColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		makespan = EXCLUDED.makespan,
		num_truck_customers = EXCLUDED.num_truck_customers,
		num_drone_customers = EXCLUDED.num_drone_customers,
		truck_waiting = EXCLUDED.truck_waiting,
		drone_waiting = EXCLUDED.drone_waiting,
		elapsed_seconds = EXCLUDED.elapsed_seconds,
		solution_json = EXCLUDED.solution_json;`
	if _, err := p.DB.ExecContext(ctx, query, runArgs(run, run.CreatedAt.UTC())...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (p *PostgresRunRepository) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	if p.DB == nil {
		return domain.RunRecord{}, errors.New("postgres run repository: DB is nil")
	}

	var created time.Time
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1;`
	run, err := scanRun(p.DB.QueryRowContext(ctx, query, id), &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, ports.ErrRunNotFound)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.CreatedAt = created
	return run, nil
}

func (p *PostgresRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if p.DB == nil {
		return nil, errors.New("postgres run repository: DB is nil")
	}

	query := `SELECT ` + runColumns + `
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT $1;`
	rows, err := p.DB.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.RunRecord, 0, 16)
	for rows.Next() {
		var created time.Time
		run, err := scanRun(rows, &created)
		if err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		run.CreatedAt = created
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return runs, nil
}
