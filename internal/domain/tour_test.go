package domain

import (
	"errors"
	"testing"
)

func TestTourInsertAndWithout(t *testing.T) {
	tour := NewTour(0, 5, 1, 2)

	got, ok := tour.InsertBetween(3, 1, 2)
	if !ok {
		t.Fatalf("expected leg 1->2 to exist")
	}
	if got.Key() != "0-1-3-2-5" {
		t.Fatalf("expected 0-1-3-2-5, got %s", got.Key())
	}
	if tour.Key() != "0-1-2-5" {
		t.Fatalf("insert must not modify the receiver, got %s", tour.Key())
	}

	if _, ok := tour.InsertBetween(3, 2, 1); ok {
		t.Fatalf("expected missing leg 2->1 to fail")
	}

	if w := got.Without(3); !w.Equal(tour) {
		t.Fatalf("expected %s after removal, got %s", tour.Key(), w.Key())
	}
}

func TestTourValidate(t *testing.T) {
	cases := []struct {
		name  string
		tour  Tour
		truck []int
		ok    bool
	}{
		{name: "valid", tour: NewTour(0, 4, 2, 1), truck: []int{1, 2}, ok: true},
		{name: "empty route", tour: NewTour(0, 4), truck: nil, ok: true},
		{name: "wrong start", tour: Tour{1, 2, 4}, truck: []int{1, 2}},
		{name: "missing customer", tour: NewTour(0, 4, 1), truck: []int{1, 2}},
		{name: "duplicate", tour: NewTour(0, 4, 1, 1), truck: []int{1, 2}},
		{name: "drone customer on tour", tour: NewTour(0, 4, 1, 3), truck: []int{1, 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tour.Validate(0, 4, tc.truck)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("expected invariant violation, got %v", err)
			}
		})
	}
}

func TestSeenToursAddIsIdempotent(t *testing.T) {
	seen := NewSeenTours()
	a := NewTour(0, 3, 1, 2)

	if !seen.Add(a) {
		t.Fatalf("expected first add to report new")
	}
	if seen.Add(a.Clone()) {
		t.Fatalf("expected second add to report seen")
	}
	if seen.Len() != 1 {
		t.Fatalf("expected 1 tour, got %d", seen.Len())
	}
	if seen.Contains(NewTour(0, 3, 2, 1)) {
		t.Fatalf("reversed tour should be distinct")
	}
}
