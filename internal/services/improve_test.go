package services

import (
	"context"
	"testing"

	"sidekick-route-service/internal/domain"
)

func TestImproveMakespanDropsDetourCustomer(t *testing.T) {
	in := build(t, testNodes(at(0, 2), at(2, 1)), 1)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 1, 2)

	mv, ok := in.ImproveMakespan(tour, sorties(t), domain.NewSeenTours())
	if !ok {
		t.Fatalf("expected an improving move")
	}
	if mv.Customer != 1 && mv.Customer != 2 {
		t.Fatalf("unexpected customer %d", mv.Customer)
	}
	if !mv.Tour.Equal(tour.Without(mv.Customer)) {
		t.Fatalf("tour %v, want %v", mv.Tour, tour.Without(mv.Customer))
	}
	if mv.Savings <= 0 {
		t.Fatalf("savings = %v, want positive", mv.Savings)
	}
	if !mv.Tour.Contains(mv.Launch) || !mv.Tour.Contains(mv.Recover) {
		t.Fatalf("leg %d->%d is not on %v", mv.Launch, mv.Recover, mv.Tour)
	}
}

func TestImproveMakespanSkipsSeenTours(t *testing.T) {
	in := build(t, testNodes(at(0, 2), at(2, 1)), 1)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 1, 2)
	seen := domain.NewSeenTours()
	seen.Add(tour.Without(1))
	seen.Add(tour.Without(2))

	if _, ok := in.ImproveMakespan(tour, sorties(t), seen); ok {
		t.Fatalf("every neighbour was seen")
	}
}

func TestImproveMakespanWithoutDrones(t *testing.T) {
	in := build(t, testNodes(at(0, 2), at(2, 1)), 0)
	if _, ok := in.ImproveMakespan(domain.NewTour(in.Depot, in.DepotReturn, 1, 2), sorties(t), nil); ok {
		t.Fatalf("no move is possible without drones")
	}
}

func TestRerouteThroughRejectsSameDroneTwice(t *testing.T) {
	in := build(t, testNodes(at(0.5, 1), at(0, 2), at(0.5, 3), at(0, 4)), 1)
	set := sorties(t,
		domain.Sortie{Drone: 2, Launch: 0, Customer: 1, Recover: 2},
		domain.Sortie{Drone: 2, Launch: 2, Customer: 3, Recover: 4},
	)
	if _, _, ok := in.rerouteThrough(0, 2, 4, set); ok {
		t.Fatalf("drone 2 cannot fly both sorties over the merged leg")
	}
}

func TestShiftRecoveriesHandsOffLaterSorties(t *testing.T) {
	in := build(t, testNodes(at(0, 1), at(0, 2), at(0.5, 0.5), at(0.5, 1.5)), 2)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 1, 2)
	set := sorties(t,
		domain.Sortie{Drone: 2, Launch: 0, Customer: 3, Recover: 1},
		domain.Sortie{Drone: 2, Launch: 1, Customer: 4, Recover: 2},
	)
	timing, err := in.Time(context.Background(), tour, set, TimingFixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	timing.NodeWaiting = map[int]float64{1: 100}

	out, shifted := in.ShiftRecoveries(tour, set, timing)
	if !shifted {
		t.Fatalf("expected a shift")
	}
	if s, _ := out.ByCustomer(3); s != (domain.Sortie{Drone: 2, Launch: 0, Customer: 3, Recover: 2}) {
		t.Fatalf("customer 3 sortie = %v", s)
	}
	if s, _ := out.ByCustomer(4); s.Drone != 3 {
		t.Fatalf("customer 4 should move to drone 3, got %v", s)
	}
	if err := out.ValidateExclusive(tour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, _ := set.ByCustomer(3); s.Recover != 1 {
		t.Fatalf("input sortie set was modified")
	}
}

func TestShiftRecoveriesNeedsWaiting(t *testing.T) {
	in := build(t, testNodes(at(0, 1), at(0, 2), at(0.5, 0.5)), 1)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 1, 2)
	set := sorties(t, domain.Sortie{Drone: 2, Launch: 0, Customer: 3, Recover: 1})
	timing, err := in.Time(context.Background(), tour, set, TimingFixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	timing.NodeWaiting = map[int]float64{}

	if _, shifted := in.ShiftRecoveries(tour, set, timing); shifted {
		t.Fatalf("nothing waits, nothing should move")
	}
}
