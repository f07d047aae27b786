package ports

import (
	"context"

	"sidekick-route-service/internal/domain"
)

// Cost of driving from one node to another.
type CostFunc func(from, to int) float64

// TSP oracle: orders customers into a closed truck tour that starts at depot
// and ends at depotReturn, minimizing the summed leg cost.
type TourSolver interface {
	Solve(ctx context.Context, depot, depotReturn int, customers []int, cost CostFunc) (domain.Tour, float64, error)
}
