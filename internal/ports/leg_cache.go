package ports

import "context"

// Persistent store for origin->destination truck legs. Keys are
// Coordinates.Key strings.
type LegCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
