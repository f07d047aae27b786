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

// Fixed-width UTC layout so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite-backed implementation of the RunRepository port.
type SqliteRunRepository struct{ DB *sql.DB }

var _ ports.RunRepository = (*SqliteRunRepository)(nil)

func NewSqliteRunRepository(db *sql.DB) *SqliteRunRepository {
	return &SqliteRunRepository{DB: db}
}

func (s *SqliteRunRepository) SaveRun(ctx context.Context, run domain.RunRecord) (err error) {
	defer obs.Time(ctx, "runs.sqlite.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("sqlite run repository: DB is nil")
	}
	if err := validateRun(run); err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO runs (` + runColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	created := run.CreatedAt.UTC().Format(sqliteTimeLayout)
	if _, err := s.DB.ExecContext(ctx, query, runArgs(run, created)...); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SqliteRunRepository) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	if s.DB == nil {
		return domain.RunRecord{}, errors.New("sqlite run repository: DB is nil")
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?;`
	run, err := s.scan(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, ports.ErrRunNotFound)
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *SqliteRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}

	query := `SELECT ` + runColumns + `
	FROM runs
	ORDER BY created_at DESC, id
	LIMIT ?;`
	rows, err := s.DB.QueryContext(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.RunRecord, 0, 16)
	for rows.Next() {
		run, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: scan row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return runs, nil
}

func (s *SqliteRunRepository) scan(row rowScanner) (domain.RunRecord, error) {
	var created string
	run, err := scanRun(row, &created)
	if err != nil {
		return domain.RunRecord{}, err
	}
	if run.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
		return domain.RunRecord{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return run, nil
}
