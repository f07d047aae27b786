package tsp

import (
	"context"
	"fmt"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// Solver is the tour oracle used by the partition phase. Small customer
// sets are solved exactly; larger ones start from a nearest-neighbour tour
// improved with 2-opt and or-opt.
type Solver struct {
	ExactLimit int
	MaxPasses  int
}

var _ ports.TourSolver = (*Solver)(nil)

func NewSolver() *Solver {
	return &Solver{ExactLimit: 10, MaxPasses: 50}
}

func (s *Solver) Solve(ctx context.Context, depot, depotReturn int, customers []int, cost ports.CostFunc) (domain.Tour, float64, error) {
	var (
		tour domain.Tour
		err  error
	)
	if len(customers) <= min(s.ExactLimit, MaxExactCustomers) {
		tour, _, err = HeldKarp(ctx, depot, depotReturn, customers, cost)
	} else {
		tour, err = s.heuristic(ctx, depot, depotReturn, customers, cost)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("solve tour: %w", err)
	}

	if err := tour.Validate(depot, depotReturn, customers); err != nil {
		return nil, 0, fmt.Errorf("solve tour: %w", err)
	}
	if parts := SubtourComponents(closingEdges(tour)); len(parts) != 1 {
		return nil, 0, fmt.Errorf("solve tour: %d subtours: %w", len(parts), domain.ErrInvariantViolation)
	}
	return tour, Cost(tour, cost), nil
}

func (s *Solver) heuristic(ctx context.Context, depot, depotReturn int, customers []int, cost ports.CostFunc) (domain.Tour, error) {
	tour, err := NearestNeighbor(ctx, depot, depotReturn, customers, cost)
	if err != nil {
		return nil, err
	}
	for range s.MaxPasses {
		before := Cost(tour, cost)
		if tour, err = TwoOpt(ctx, tour, cost, s.MaxPasses); err != nil {
			return nil, err
		}
		if tour, err = OrOpt(ctx, tour, cost, s.MaxPasses); err != nil {
			return nil, err
		}
		if Cost(tour, cost) >= before-improveEps {
			break
		}
	}
	return tour, nil
}

// closingEdges lists the tour's arcs with the depot copy folded onto the
// depot, so a valid tour forms one cycle.
func closingEdges(t domain.Tour) []Edge {
	last := t[len(t)-1]
	node := func(n int) int {
		if n == last {
			return t[0]
		}
		return n
	}
	edges := make([]Edge, 0, len(t)-1)
	for p := 1; p < len(t); p++ {
		edges = append(edges, Edge{From: node(t[p-1]), To: node(t[p])})
	}
	return edges
}
