package tsp

import (
	"context"
	"math"
	"slices"
	"testing"

	"sidekick-route-service/internal/domain"
)

// gridCost prices legs by Euclidean distance between points; node 0 and
// the copy id share the depot point.
func gridCost(points map[int][2]float64) func(a, b int) float64 {
	return func(a, b int) float64 {
		pa, pb := points[a], points[b]
		return math.Hypot(pa[0]-pb[0], pa[1]-pb[1])
	}
}

func testPoints(n int) (map[int][2]float64, []int) {
	points := map[int][2]float64{0: {0, 0}, n + 1: {0, 0}}
	var customers []int
	for i := 1; i <= n; i++ {
		// Deterministic scatter.
		points[i] = [2]float64{float64((i * 37) % 11), float64((i * 53) % 13)}
		customers = append(customers, i)
	}
	return points, customers
}

func TestHeldKarpSquare(t *testing.T) {
	points := map[int][2]float64{0: {0, 0}, 1: {0, 1}, 2: {1, 1}, 3: {1, 0}, 4: {0, 0}}
	tour, cost, err := HeldKarp(context.Background(), 0, 4, []int{2, 1, 3}, gridCost(points))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(cost-4) > 1e-9 {
		t.Fatalf("cost = %v, want 4", cost)
	}
	if !tour.Equal(domain.Tour{0, 1, 2, 3, 4}) && !tour.Equal(domain.Tour{0, 3, 2, 1, 4}) {
		t.Fatalf("unexpected tour %v", tour)
	}
}

func TestHeldKarpEmpty(t *testing.T) {
	tour, cost, err := HeldKarp(context.Background(), 0, 1, nil, func(a, b int) float64 { return 0 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tour.Equal(domain.Tour{0, 1}) || cost != 0 {
		t.Fatalf("got %v cost %v", tour, cost)
	}
}

func TestHeldKarpRejectsLargeSets(t *testing.T) {
	_, customers := testPoints(MaxExactCustomers + 1)
	if _, _, err := HeldKarp(context.Background(), 0, len(customers)+1, customers, func(a, b int) float64 { return 1 }); err == nil {
		t.Fatalf("expected error above the exact limit")
	}
}

func TestHeuristicMatchesExactOnSmallSets(t *testing.T) {
	for n := 2; n <= 8; n++ {
		points, customers := testPoints(n)
		cost := gridCost(points)

		_, exact, err := HeldKarp(context.Background(), 0, n+1, customers, cost)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s := &Solver{ExactLimit: 0, MaxPasses: 50}
		tour, got, err := s.Solve(context.Background(), 0, n+1, customers, cost)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if err := tour.Validate(0, n+1, customers); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if got < exact-1e-9 {
			t.Fatalf("n=%d: heuristic %v beats optimum %v", n, got, exact)
		}
		// Local search is not exact, but stays close on small scatters.
		if got > exact*1.25+1e-9 {
			t.Fatalf("n=%d: heuristic %v too far from optimum %v", n, got, exact)
		}
	}
}

func TestSolverExactPath(t *testing.T) {
	points, customers := testPoints(6)
	cost := gridCost(points)
	tour, got, err := NewSolver().Solve(context.Background(), 0, 7, customers, cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, exact, _ := HeldKarp(context.Background(), 0, 7, customers, cost)
	if math.Abs(got-exact) > 1e-9 {
		t.Fatalf("cost %v, want %v", got, exact)
	}
	if math.Abs(Cost(tour, cost)-got) > 1e-9 {
		t.Fatalf("reported cost %v does not match tour cost %v", got, Cost(tour, cost))
	}
}

func TestSolverLargeSet(t *testing.T) {
	points, customers := testPoints(20)
	cost := gridCost(points)
	tour, got, err := NewSolver().Solve(context.Background(), 0, 21, customers, cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nn, _ := NearestNeighbor(context.Background(), 0, 21, customers, cost)
	if got > Cost(nn, cost)+1e-9 {
		t.Fatalf("improved tour %v costs more than its seed %v", got, Cost(nn, cost))
	}
	if err := tour.Validate(0, 21, customers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSolverCanceled(t *testing.T) {
	points, customers := testPoints(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewSolver().Solve(ctx, 0, 21, customers, gridCost(points)); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestNearestNeighborTieBreak(t *testing.T) {
	tour, err := NearestNeighbor(context.Background(), 0, 4, []int{3, 1, 2}, func(a, b int) float64 { return 1 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tour.Equal(domain.Tour{0, 1, 2, 3, 4}) {
		t.Fatalf("got %v, want ascending ids on ties", tour)
	}
}

func TestSubtourComponents(t *testing.T) {
	cycle := []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	if got := SubtourComponents(cycle); len(got) != 1 || !slices.Equal(got[0], []int{0, 1, 2, 3}) {
		t.Fatalf("got %v, want one component", got)
	}

	split := []Edge{{0, 1}, {1, 0}, {2, 3}, {3, 4}, {4, 2}, {5, 6}, {6, 5}}
	got := SubtourComponents(split)
	want := [][]int{{0, 1}, {2, 3, 4}, {5, 6}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
