package tsp

import (
	"context"
	"slices"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

const improveEps = 1e-9

// TwoOpt reverses inner segments of the tour while that lowers its cost.
// Both end nodes stay in place. Segment costs are recomputed in full, so
// asymmetric costs are handled.
func TwoOpt(ctx context.Context, t domain.Tour, cost ports.CostFunc, maxPasses int) (domain.Tour, error) {
	best := t.Clone()
	bestCost := Cost(best, cost)

	for range maxPasses {
		improved := false
		for i := 1; i+1 < len(best)-1; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for j := i + 1; j < len(best)-1; j++ {
				cand := best.Clone()
				slices.Reverse(cand[i : j+1])
				if c := Cost(cand, cost); c < bestCost-improveEps {
					best, bestCost = cand, c
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best, nil
}

// OrOpt moves runs of one to three customers to their cheapest position.
func OrOpt(ctx context.Context, t domain.Tour, cost ports.CostFunc, maxPasses int) (domain.Tour, error) {
	best := t.Clone()
	bestCost := Cost(best, cost)

	for range maxPasses {
		improved := false
		for length := 1; length <= 3; length++ {
			for i := 1; i+length < len(best); i++ {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				run := slices.Clone(best[i : i+length])
				rest := slices.Concat(best[:i], best[i+length:])
				for p := 1; p < len(rest); p++ {
					if p == i {
						continue
					}
					cand := slices.Concat(rest[:p], run, rest[p:])
					if c := Cost(cand, cost); c < bestCost-improveEps {
						best, bestCost = cand, c
						improved = true
					}
				}
			}
		}
		if !improved {
			break
		}
	}
	return best, nil
}
