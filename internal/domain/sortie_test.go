package domain

import (
	"errors"
	"testing"
)

func TestSortieSetIndexes(t *testing.T) {
	set, err := NewSortieSet(
		Sortie{Drone: 3, Launch: 0, Customer: 2, Recover: 1},
		Sortie{Drone: 2, Launch: 0, Customer: 4, Recover: 1},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	launches := set.LaunchesAt(0)
	if len(launches) != 2 || launches[0].Drone != 2 {
		t.Fatalf("expected launches ordered by drone, got %v", launches)
	}
	if len(set.LandsAt(1)) != 2 {
		t.Fatalf("expected 2 landings at node 1")
	}

	if err := set.Add(Sortie{Drone: 2, Launch: 1, Customer: 4, Recover: 5}); err == nil {
		t.Fatalf("expected duplicate customer to be rejected")
	}

	set.Replace(Sortie{Drone: 2, Launch: 1, Customer: 4, Recover: 5})
	if len(set.LaunchesAt(0)) != 1 {
		t.Fatalf("expected replaced sortie to leave node 0")
	}
	if got, _ := set.ByCustomer(4); got.Recover != 5 {
		t.Fatalf("expected customer 4 recovered at 5, got %v", got)
	}

	if _, ok := set.Remove(2); !ok {
		t.Fatalf("expected customer 2 to be removed")
	}
	if set.Len() != 1 || len(set.LandsAt(1)) != 0 {
		t.Fatalf("unexpected state after remove: %v", set.All())
	}
}

func TestSortieSetValidateExclusive(t *testing.T) {
	tour := NewTour(0, 9, 1, 2, 3)

	back2back, _ := NewSortieSet(
		Sortie{Drone: 2, Launch: 0, Customer: 5, Recover: 1},
		Sortie{Drone: 2, Launch: 1, Customer: 6, Recover: 3},
	)
	if err := back2back.ValidateExclusive(tour); err != nil {
		t.Fatalf("touching sorties should be allowed: %v", err)
	}

	overlap, _ := NewSortieSet(
		Sortie{Drone: 2, Launch: 0, Customer: 5, Recover: 2},
		Sortie{Drone: 2, Launch: 1, Customer: 6, Recover: 3},
	)
	if err := overlap.ValidateExclusive(tour); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected overlap to be rejected, got %v", err)
	}

	backwards, _ := NewSortieSet(Sortie{Drone: 2, Launch: 2, Customer: 5, Recover: 1})
	if err := backwards.ValidateExclusive(tour); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected recovery before launch to be rejected, got %v", err)
	}

	offTour, _ := NewSortieSet(Sortie{Drone: 2, Launch: 0, Customer: 5, Recover: 7})
	if err := offTour.ValidateExclusive(tour); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected off-tour node to be rejected, got %v", err)
	}
}
