package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Ordered truck visit sequence: depot first, depot copy last, truck
// customers in between.
type Tour []int

func NewTour(depot, depotReturn int, customers ...int) Tour {
	t := make(Tour, 0, len(customers)+2)
	t = append(t, depot)
	t = append(t, customers...)
	return append(t, depotReturn)
}

// Customers visited by the truck, in visit order.
func (t Tour) Customers() []int {
	if len(t) < 2 {
		return nil
	}
	return slices.Clone(t[1 : len(t)-1])
}

func (t Tour) Positions() map[int]int {
	pos := make(map[int]int, len(t))
	for i, n := range t {
		pos[n] = i
	}
	return pos
}

func (t Tour) Index(node int) int { return slices.Index(t, node) }

func (t Tour) Contains(node int) bool { return slices.Contains(t, node) }

func (t Tour) Equal(o Tour) bool { return slices.Equal(t, o) }

func (t Tour) Clone() Tour { return slices.Clone(t) }

// Key is a stable string form used for set membership.
func (t Tour) Key() string {
	var b strings.Builder
	for i, n := range t {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// InsertAt returns a copy with node placed at position pos.
func (t Tour) InsertAt(pos int, node int) Tour {
	out := make(Tour, 0, len(t)+1)
	out = append(out, t[:pos]...)
	out = append(out, node)
	return append(out, t[pos:]...)
}

// InsertBetween returns a copy with node placed on the first leg from -> to.
func (t Tour) InsertBetween(node, from, to int) (Tour, bool) {
	for p := 0; p+1 < len(t); p++ {
		if t[p] == from && t[p+1] == to {
			return t.InsertAt(p+1, node), true
		}
	}
	return nil, false
}

// Without returns a copy with node removed.
func (t Tour) Without(node int) Tour {
	out := make(Tour, 0, len(t))
	for _, n := range t {
		if n != node {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks that the tour is depot-anchored and a permutation of
// exactly the truck customer set.
func (t Tour) Validate(depot, depotReturn int, truckCustomers []int) error {
	if len(t) < 2 || t[0] != depot || t[len(t)-1] != depotReturn {
		return fmt.Errorf("validate tour %s: must start at %d and end at %d: %w", t.Key(), depot, depotReturn, ErrInvariantViolation)
	}

	inner := t.Customers()
	if len(inner) != len(truckCustomers) {
		return fmt.Errorf("validate tour %s: visits %d customers, want %d: %w", t.Key(), len(inner), len(truckCustomers), ErrInvariantViolation)
	}

	want := make(map[int]struct{}, len(truckCustomers))
	for _, c := range truckCustomers {
		want[c] = struct{}{}
	}
	seen := make(map[int]struct{}, len(inner))
	for _, c := range inner {
		if _, ok := want[c]; !ok {
			return fmt.Errorf("validate tour %s: unexpected node %d: %w", t.Key(), c, ErrInvariantViolation)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("validate tour %s: node %d visited twice: %w", t.Key(), c, ErrInvariantViolation)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// SeenTours records every truck tour examined during one run. It only grows.
type SeenTours struct {
	keys map[string]struct{}
}

func NewSeenTours() *SeenTours {
	return &SeenTours{keys: make(map[string]struct{})}
}

// Add records t and reports whether it was new.
func (s *SeenTours) Add(t Tour) bool {
	k := t.Key()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

func (s *SeenTours) Contains(t Tour) bool {
	_, ok := s.keys[t.Key()]
	return ok
}

func (s *SeenTours) Len() int { return len(s.keys) }
