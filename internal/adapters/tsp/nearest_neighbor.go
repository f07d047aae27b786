// Package tsp orders truck customers into a closed tour from the depot to
// its copy.
package tsp

import (
	"context"
	"errors"
	"math"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// NearestNeighbor builds a tour with a greedy nearest-neighbour walk.
//
// Each step moves to the cheapest unvisited customer from the current node.
// Ties go to the lower node id, so the result is deterministic.
func NearestNeighbor(ctx context.Context, depot, depotReturn int, customers []int, cost ports.CostFunc) (domain.Tour, error) {
	if cost == nil {
		return nil, errors.New("nearest neighbor: cost must be non-nil")
	}

	remaining := make(map[int]struct{}, len(customers))
	for _, c := range customers {
		remaining[c] = struct{}{}
	}

	tour := domain.Tour{depot}
	current := depot
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := -1
		minCost := math.Inf(1)
		for c := range remaining {
			d := cost(current, c)
			if d < minCost || (d == minCost && (best < 0 || c < best)) {
				minCost = d
				best = c
			}
		}
		if best < 0 {
			return nil, errors.New("nearest neighbor: failed to select next customer")
		}

		tour = append(tour, best)
		delete(remaining, best)
		current = best
	}
	return append(tour, depotReturn), nil
}

// Cost is the summed leg cost of a tour.
func Cost(t domain.Tour, cost ports.CostFunc) float64 {
	total := 0.0
	for p := 1; p < len(t); p++ {
		total += cost(t[p-1], t[p])
	}
	return total
}
