package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"sidekick-route-service/internal/adapters/distance"
	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/ports"
)

func TestBuildTruckMatrixPairwise(t *testing.T) {
	nodes := testNodes(at(0, 1), at(1, 1))
	provider := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: nodes[0].Position, To: nodes[1].Position, Meters: 1000, Seconds: 300},
		{From: nodes[0].Position, To: nodes[2].Position, Meters: 2000, Seconds: 600},
		{From: nodes[1].Position, To: nodes[0].Position, Meters: 1000, Seconds: 300},
		{From: nodes[1].Position, To: nodes[2].Position, Meters: 800, Seconds: 240},
		{From: nodes[2].Position, To: nodes[0].Position, Meters: 2000, Seconds: 600},
		{From: nodes[2].Position, To: nodes[1].Position, Meters: 900, Seconds: 270},
	})

	m, err := BuildTruckMatrix(context.Background(), nodes, provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 6 {
		t.Fatalf("got %d legs, want 6", len(m))
	}
	leg, ok := m.Get(2, 1)
	if !ok || leg.TotalTime != 270 || leg.TotalDist != 900 {
		t.Fatalf("leg 2->1 = %+v, %v", leg, ok)
	}
	if provider.Calls() != 6 {
		t.Fatalf("provider called %d times, want 6", provider.Calls())
	}
}

func TestBuildTruckMatrixMissingPair(t *testing.T) {
	nodes := testNodes(at(0, 1))
	provider := distance.NewMockDistanceProvider([]distance.MockPair{
		{From: nodes[0].Position, To: nodes[1].Position, Meters: 1000, Seconds: 300},
	})
	if _, err := BuildTruckMatrix(context.Background(), nodes, provider); err == nil {
		t.Fatalf("expected error for missing pair")
	}
}

type batchProvider struct {
	*distance.MockDistanceProvider
	batches atomic.Int64
}

func (b *batchProvider) GetDistances(ctx context.Context, origin domain.Coordinates, dests []domain.Coordinates) (map[string]ports.DistanceResult, error) {
	b.batches.Add(1)
	out := make(map[string]ports.DistanceResult, len(dests))
	for _, d := range dests {
		r, err := b.GetDistance(ctx, origin, d)
		if err != nil {
			return nil, err
		}
		out[d.Key()] = r
	}
	return out, nil
}

func TestBuildTruckMatrixBatched(t *testing.T) {
	nodes := testNodes(at(0, 1), at(1, 1), at(1, 0))
	provider := &batchProvider{MockDistanceProvider: distance.NewStraightLineProvider(truckSpeed)}

	m, err := BuildTruckMatrix(context.Background(), nodes, provider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 12 {
		t.Fatalf("got %d legs, want 12", len(m))
	}
	if got := provider.batches.Load(); got != 4 {
		t.Fatalf("got %d batch calls, want one per origin", got)
	}

	in, err := BuildInstance(nodes, testFleet(t, 1), m, calcFor(t, energy.ModelUnlimited), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leg, _ := m.Get(1, 2); !near(in.Tau(1, 2), leg.TotalTime) {
		t.Fatalf("tau(1,2) = %v, want %v", in.Tau(1, 2), leg.TotalTime)
	}
}

func TestBuildTruckMatrixCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildTruckMatrix(ctx, testNodes(at(0, 1)), distance.NewStraightLineProvider(truckSpeed))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
