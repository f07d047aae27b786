package services

import (
	"fmt"
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
)

// Arc is one truck leg of the tour.
type Arc struct {
	From int
	To   int
}

// Relocation moves a drone customer onto the truck leg From -> To.
type Relocation struct {
	Customer int
	From     int
	To       int
}

// Assignment is the result of giving every drone customer a sortie on a
// fixed tour.
type Assignment struct {
	Arcs    []Arc
	Sorties *domain.SortieSet
	// Drone customers no free window could take, in the order they were tried.
	Unassigned []int
	// Set when Unassigned is non-empty and an unseen insertion exists.
	Relocation *Relocation
	// Cheapest truck detour of the relocated customer.
	InsertCost float64
}

// Failed reports whether some drone customer was left without a sortie.
func (a Assignment) Failed() bool { return len(a.Unassigned) > 0 }

type window struct {
	v, i, k int
}

// AssignSorties gives each drone customer of the plan's tour one sortie on a
// consecutive tour leg. Customers with the fewest candidate windows go first
// and take the window whose flight best matches the truck's transit. When
// some customer cannot be placed, one customer is proposed for insertion
// into the truck tour; seen rules out insertions that recreate an explored
// tour.
func (in *Instance) AssignSorties(plan domain.TruckPlan, seen *domain.SeenTours) (Assignment, error) {
	tour := plan.Tour
	if len(tour) < 2 {
		return Assignment{}, fmt.Errorf("assign sorties: tour %s is too short: %w", tour.Key(), domain.ErrInvariantViolation)
	}

	arrive := make(map[int]float64, len(plan.Stops))
	for _, s := range plan.Stops {
		arrive[s.Node] = s.ArriveAt
	}

	out := Assignment{Sorties: mustSortieSet()}
	for p := 0; p+1 < len(tour); p++ {
		out.Arcs = append(out.Arcs, Arc{From: tour[p], To: tour[p+1]})
	}

	droners := in.droneCustomers(tour)
	insertCost := make(map[int]float64, len(droners))
	for _, j := range droners {
		best := math.Inf(1)
		for _, a := range out.Arcs {
			c := math.Max(0, in.tau[a.From][j]+in.Sigma(j)+in.tau[j][a.To]-in.tau[a.From][a.To])
			best = math.Min(best, c)
		}
		insertCost[j] = best
	}

	support := in.candidateWindows(tour, arrive, droners)

	order := slices.Clone(droners)
	slices.SortStableFunc(order, func(a, b int) int { return len(support[a]) - len(support[b]) })

	pos := tour.Positions()
	avail := make([]map[int]bool, len(tour))
	for p := range avail {
		avail[p] = make(map[int]bool, in.NumDrones())
		for _, v := range in.DroneIDs() {
			avail[p][v] = true
		}
	}

	for _, j := range order {
		waiting := in.BigM
		var pick *window
		for _, w := range support[j] {
			free := true
			for p := pos[w.i]; p < pos[w.k]; p++ {
				if !avail[p][w.v] {
					free = false
					break
				}
			}
			if !free {
				continue
			}

			cand := in.SortieDuration(w.v, w.i, j, w.k) - (arrive[w.k] - arrive[w.i])
			if betterWaiting(cand, waiting) {
				waiting = cand
				pick = &w
			}
		}

		if pick == nil {
			out.Unassigned = append(out.Unassigned, j)
			continue
		}
		if err := out.Sorties.Add(domain.Sortie{Drone: pick.v, Launch: pick.i, Customer: j, Recover: pick.k}); err != nil {
			return Assignment{}, fmt.Errorf("assign sorties: %w", err)
		}
		for p := pos[pick.i]; p < pos[pick.k]; p++ {
			avail[p][pick.v] = false
		}
	}

	if !out.Failed() {
		return out, nil
	}

	if r, ok := in.relocate(tour, droners, out.Unassigned, insertCost, seen); ok {
		out.Relocation = &r
		out.InsertCost = insertCost[r.Customer]
	}
	return out, nil
}

// betterWaiting prefers the smallest non-negative wait. A negative wait
// (the truck outruns the drone) is only taken over another negative wait
// when it is closer to zero, and always over a non-negative one.
func betterWaiting(cand, current float64) bool {
	if cand >= 0 {
		return cand < current
	}
	return current >= 0 || current < cand
}

// candidateWindows lists, per drone customer, the <v,i,k> windows on
// consecutive tour legs whose sortie fits its endurance and whose truck
// transit does not exceed it.
func (in *Instance) candidateWindows(tour domain.Tour, arrive map[int]float64, droners []int) map[int][]window {
	out := make(map[int][]window, len(droners))
	for _, v := range in.DroneIDs() {
		for p := 0; p+1 < len(tour); p++ {
			i, k := tour[p], tour[p+1]
			timed := !(i == in.Depot && !in.Options.RequireDriver)
			if k == in.DepotReturn && !in.Options.RequireTruckAtDepot {
				timed = false
			}
			transit := arrive[k] - arrive[i] - in.Sigma(i)
			if timed && transit > in.EndurancePrime(v, i, k) {
				continue
			}
			for _, j := range droners {
				e := in.Endurance(v, i, j, k)
				if in.SortieDuration(v, i, j, k) <= e && transit < e {
					out[j] = append(out[j], window{v: v, i: i, k: k})
				}
			}
		}
	}
	return out
}

// relocate picks the single insertion of a drone customer into the tour
// that best repairs the failed customers. The score is the detour (inflated
// for customers that did not fail), plus the drone waiting still needed by
// the failed customers that become servable, plus the insertion cost of
// those that stay unservable.
func (in *Instance) relocate(tour domain.Tour, droners, failed []int, insertCost map[int]float64, seen *domain.SeenTours) (Relocation, bool) {
	best := math.Inf(1)
	var out Relocation
	found := false

	for _, i := range droners {
		for p := 1; p < len(tour); p++ {
			cand := tour.InsertAt(p, i)
			if seen != nil && seen.Contains(cand) {
				continue
			}

			prev, next := tour[p-1], tour[p]
			cInsert := in.tau[prev][i] + in.tau[i][next] - in.tau[prev][next]
			if !slices.Contains(failed, i) {
				cInsert *= 1.5
			}

			var cWait, cFail float64
			for _, j := range failed {
				if j == i {
					continue
				}
				if wait, ok := in.servableAfterInsert(tour, p, i, j); ok {
					cWait += wait
				} else {
					cFail += insertCost[j]
				}
			}

			if total := cInsert + cWait + cFail; total < best {
				best = total
				out = Relocation{Customer: i, From: prev, To: next}
				found = true
			}
		}
	}
	return out, found
}

// servableAfterInsert checks whether failed customer j could be served by a
// sortie launched from i (inserted at position p) and landing later on the
// tour, or launched earlier and landing at i. It returns the smallest drone
// wait over all such sorties and all drones.
func (in *Instance) servableAfterInsert(tour domain.Tour, p, i, j int) (float64, bool) {
	best := math.Inf(1)
	ok := false
	consider := func(v, from, to int, truckTime float64) {
		e := in.Endurance(v, from, j, to)
		flight := in.SortieDuration(v, from, j, to)
		if flight <= e && truckTime <= e {
			ok = true
			best = math.Min(best, math.Max(0, flight-truckTime))
		}
	}

	for _, v := range in.DroneIDs() {
		truckTime := 0.0
		last, prevStop := i, -1
		for q := p; q < len(tour); q++ {
			k := tour[q]
			truckTime += in.tau[last][k]
			last = k
			if prevStop >= 0 {
				truckTime += in.Sigma(prevStop)
			}
			prevStop = k
			consider(v, i, k, truckTime)
		}

		truckTime = 0.0
		last, prevStop = i, -1
		for q := p - 1; q >= 0; q-- {
			k := tour[q]
			truckTime += in.tau[k][last]
			last = k
			if prevStop >= 0 {
				truckTime += in.Sigma(prevStop)
			}
			prevStop = k
			consider(v, k, i, truckTime)
		}
	}
	return best, ok
}

func mustSortieSet() *domain.SortieSet {
	s, _ := domain.NewSortieSet()
	return s
}
