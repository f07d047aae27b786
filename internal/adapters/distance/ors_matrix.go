package distance

import (
	"context"
	"fmt"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// legQuery asks for the legs from locations[0] to every other location.
type legQuery struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Units        string      `json:"units"`
}

// legTable holds one row per source. A null cell is an unroutable leg.
type legTable struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

func newLegQuery(from domain.Coordinates, to []domain.Coordinates) legQuery {
	q := legQuery{
		Locations:    [][]float64{from.CoordsToList()},
		Sources:      []int{0},
		Destinations: make([]int, len(to)),
		Metrics:      []string{"distance", "duration"},
		Units:        "m",
	}
	for i, c := range to {
		q.Locations = append(q.Locations, c.CoordsToList())
		q.Destinations[i] = i + 1
	}
	return q
}

// leg returns cell i of the single source row.
func (t legTable) leg(i int) (ports.DistanceResult, bool) {
	m, s := t.Distances[0][i], t.Durations[0][i]
	if m == nil || s == nil {
		return ports.DistanceResult{}, false
	}
	return ports.DistanceResult{DistanceMeters: *m, DurationSeconds: *s}, true
}

// fetchLegs prices the truck legs from one node to each of to, keyed by
// Coordinates.Key.
func (o *ORSDistanceProvider) fetchLegs(ctx context.Context, from domain.Coordinates, to []domain.Coordinates) (map[string]ports.DistanceResult, error) {
	legs := make(map[string]ports.DistanceResult, len(to))
	if len(to) == 0 {
		return legs, nil
	}

	var table legTable
	if err := o.postJSON(ctx, "/v2/matrix/"+o.profile, newLegQuery(from, to), &table); err != nil {
		return nil, fmt.Errorf("matrix from %s: %w", from.Key(), err)
	}
	if len(table.Distances) != 1 || len(table.Durations) != 1 ||
		len(table.Distances[0]) != len(to) || len(table.Durations[0]) != len(to) {
		return nil, fmt.Errorf("matrix from %s: malformed table for %d destinations", from.Key(), len(to))
	}

	for i, c := range to {
		leg, ok := table.leg(i)
		if !ok {
			return nil, fmt.Errorf("matrix from %s: no route to %s", from.Key(), c.Key())
		}
		legs[c.Key()] = leg
	}
	return legs, nil
}
