package services

import (
	"context"
	"fmt"
	"sync"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// Concurrent origin lookups against the distance provider.
const matrixWorkers = 5

type originResult struct {
	origin  int
	results map[string]ports.DistanceResult
	err     error
}

// BuildTruckMatrix fetches truck travel time and distance between every
// ordered pair of nodes. Providers that support batched lookups are asked
// once per origin; others once per pair.
func BuildTruckMatrix(ctx context.Context, nodes []domain.Node, provider ports.DistanceProvider) (domain.TruckMatrix, error) {
	matrix := make(domain.TruckMatrix, len(nodes)*len(nodes))
	if len(nodes) < 2 {
		return matrix, nil
	}

	mp, hasMatrix := provider.(ports.DistanceMatrixProvider)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, matrixWorkers)
	resultsCh := make(chan originResult, len(nodes))
	var wg sync.WaitGroup

	for _, origin := range nodes {
		targets := make([]domain.Coordinates, 0, len(nodes)-1)
		for _, n := range nodes {
			if n.ID != origin.ID {
				targets = append(targets, n.Position)
			}
		}

		wg.Add(1)
		go func(orig domain.Node) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			var res map[string]ports.DistanceResult
			if hasMatrix {
				var e error
				res, e = mp.GetDistances(ctx, orig.Position, targets)
				if e != nil {
					resultsCh <- originResult{origin: orig.ID, err: fmt.Errorf("build truck matrix: distances from node %d: %w", orig.ID, e)}
					cancel()
					return
				}
			} else {
				res = make(map[string]ports.DistanceResult, len(targets))
				for _, t := range targets {
					r, e := provider.GetDistance(ctx, orig.Position, t)
					if e != nil {
						resultsCh <- originResult{origin: orig.ID, err: fmt.Errorf("build truck matrix: distance from node %d to %s: %w", orig.ID, t.Key(), e)}
						cancel()
						return
					}
					res[t.Key()] = r
				}
			}

			resultsCh <- originResult{origin: orig.ID, results: res}
		}(origin)
	}

	wg.Wait()
	close(resultsCh)

	var firstErr error
	for res := range resultsCh {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		for _, n := range nodes {
			if n.ID == res.origin {
				continue
			}
			r, ok := res.results[n.Position.Key()]
			if !ok {
				return nil, fmt.Errorf("build truck matrix: missing leg %d->%d", res.origin, n.ID)
			}
			matrix.Set(res.origin, n.ID, domain.NewTruckLeg(r.DurationSeconds, r.DistanceMeters))
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return matrix, nil
}
