package domain

import (
	"fmt"
	"slices"
)

// Sortie <Drone, Launch, Customer, Recover>: the drone launches at node
// Launch, serves Customer, and is recovered at node Recover.
type Sortie struct {
	Drone    int
	Launch   int
	Customer int
	Recover  int
}

func (s Sortie) String() string {
	return fmt.Sprintf("<%d,%d,%d,%d>", s.Drone, s.Launch, s.Customer, s.Recover)
}

func compareSorties(a, b Sortie) int {
	if a.Drone != b.Drone {
		return a.Drone - b.Drone
	}
	if a.Launch != b.Launch {
		return a.Launch - b.Launch
	}
	if a.Customer != b.Customer {
		return a.Customer - b.Customer
	}
	return a.Recover - b.Recover
}

// SortieSet holds committed sorties indexed by customer and by the nodes
// where drones launch and land. A customer appears in at most one sortie.
type SortieSet struct {
	byCustomer map[int]Sortie
	launches   map[int][]Sortie
	landings   map[int][]Sortie
}

func NewSortieSet(sorties ...Sortie) (*SortieSet, error) {
	s := &SortieSet{
		byCustomer: make(map[int]Sortie, len(sorties)),
		launches:   make(map[int][]Sortie),
		landings:   make(map[int][]Sortie),
	}
	for _, x := range sorties {
		if err := s.Add(x); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add commits a sortie; it fails if the customer is already served.
func (s *SortieSet) Add(x Sortie) error {
	if prev, ok := s.byCustomer[x.Customer]; ok {
		return fmt.Errorf("add sortie %s: customer %d already served by %s", x, x.Customer, prev)
	}
	s.byCustomer[x.Customer] = x
	s.launches[x.Launch] = insertSorted(s.launches[x.Launch], x)
	s.landings[x.Recover] = insertSorted(s.landings[x.Recover], x)
	return nil
}

// Remove drops the sortie serving customer, if any.
func (s *SortieSet) Remove(customer int) (Sortie, bool) {
	x, ok := s.byCustomer[customer]
	if !ok {
		return Sortie{}, false
	}
	delete(s.byCustomer, customer)
	s.launches[x.Launch] = removeSortie(s.launches[x.Launch], x)
	s.landings[x.Recover] = removeSortie(s.landings[x.Recover], x)
	return x, true
}

// Replace swaps the sortie serving next.Customer for next.
func (s *SortieSet) Replace(next Sortie) {
	s.Remove(next.Customer)
	_ = s.Add(next)
}

func (s *SortieSet) ByCustomer(customer int) (Sortie, bool) {
	x, ok := s.byCustomer[customer]
	return x, ok
}

// Sorties launching at node, ordered by drone id.
func (s *SortieSet) LaunchesAt(node int) []Sortie {
	return slices.Clone(s.launches[node])
}

// Sorties recovered at node, ordered by drone id.
func (s *SortieSet) LandsAt(node int) []Sortie {
	return slices.Clone(s.landings[node])
}

func (s *SortieSet) Len() int { return len(s.byCustomer) }

// All returns every sortie in deterministic order.
func (s *SortieSet) All() []Sortie {
	out := make([]Sortie, 0, len(s.byCustomer))
	for _, x := range s.byCustomer {
		out = append(out, x)
	}
	slices.SortFunc(out, compareSorties)
	return out
}

// Customers served by drone, ascending.
func (s *SortieSet) Customers() []int {
	out := make([]int, 0, len(s.byCustomer))
	for j := range s.byCustomer {
		out = append(out, j)
	}
	slices.Sort(out)
	return out
}

func (s *SortieSet) Clone() *SortieSet {
	c, _ := NewSortieSet(s.All()...)
	return c
}

// ValidateExclusive checks that no drone holds two sorties whose tour-position
// intervals [pos(launch), pos(recover)] overlap, and that every launch
// precedes its recovery in the tour. Touching endpoints are allowed: a drone
// may be recovered and relaunched at the same node.
func (s *SortieSet) ValidateExclusive(t Tour) error {
	pos := t.Positions()
	byDrone := make(map[int][][2]int)
	for _, x := range s.All() {
		p, okp := pos[x.Launch]
		q, okq := pos[x.Recover]
		if !okp || !okq {
			return fmt.Errorf("validate sorties: %s uses a node outside the tour: %w", x, ErrInvariantViolation)
		}
		if p >= q {
			return fmt.Errorf("validate sorties: %s recovers before it launches: %w", x, ErrInvariantViolation)
		}
		byDrone[x.Drone] = append(byDrone[x.Drone], [2]int{p, q})
	}

	for v, spans := range byDrone {
		slices.SortFunc(spans, func(a, b [2]int) int { return a[0] - b[0] })
		for i := 1; i < len(spans); i++ {
			if spans[i][0] < spans[i-1][1] {
				return fmt.Errorf("validate sorties: drone %d has overlapping sorties at positions %v and %v: %w",
					v, spans[i-1], spans[i], ErrInvariantViolation)
			}
		}
	}
	return nil
}

func insertSorted(list []Sortie, x Sortie) []Sortie {
	i, _ := slices.BinarySearchFunc(list, x, compareSorties)
	return slices.Insert(list, i, x)
}

func removeSortie(list []Sortie, x Sortie) []Sortie {
	i, found := slices.BinarySearchFunc(list, x, compareSorties)
	if !found {
		return list
	}
	return slices.Delete(list, i, i+1)
}
