package ports

import (
	"context"
	"errors"

	"sidekick-route-service/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

// Port: a boundary for persisting planner runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.RunRecord) error
	// Return ErrRunNotFound when no run has the id.
	GetRun(ctx context.Context, id string) (domain.RunRecord, error)
	// Most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
