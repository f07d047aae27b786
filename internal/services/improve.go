package services

import (
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
)

// MakespanMove takes one customer off the truck tour so the next
// assignment round can serve it by drone.
type MakespanMove struct {
	Customer int
	// Leg the drone is expected to serve it from.
	Launch  int
	Recover int
	Tour    domain.Tour
	Savings float64
}

// ImproveMakespan looks for the truck customer whose removal saves the most
// truck time net of the launch, recovery and drone-wait cost of serving it
// from some remaining leg. Sorties touching the removed stop are rerouted to
// its neighbours and must still fit their endurance. Tours already explored
// are skipped. It reports false when no move saves time.
func (in *Instance) ImproveMakespan(tour domain.Tour, sorties *domain.SortieSet, seen *domain.SeenTours) (MakespanMove, bool) {
	if in.NumDrones() == 0 || len(tour) < 3 {
		return MakespanMove{}, false
	}

	busyFrom := make(map[int][]int, len(tour))
	legTime := make(map[Arc]float64, len(tour))
	for p := 0; p+1 < len(tour); p++ {
		legTime[Arc{tour[p], tour[p+1]}] = in.tau[tour[p]][tour[p+1]]
	}
	for _, s := range sorties.All() {
		busyFrom[s.Launch] = append(busyFrom[s.Launch], s.Drone)
		a := Arc{s.Launch, s.Recover}
		if _, ok := legTime[a]; ok {
			legTime[a] = math.Max(legTime[a], in.SortieDuration(s.Drone, s.Launch, s.Customer, s.Recover))
		}
	}
	free := func(n int) []int {
		var out []int
		for _, v := range in.DroneIDs() {
			if !slices.Contains(busyFrom[n], v) {
				out = append(out, v)
			}
		}
		return out
	}
	span := func(a Arc) float64 {
		if t, ok := legTime[a]; ok {
			return t
		}
		return in.tau[a.From][a.To]
	}

	var best MakespanMove
	found := false
	for p := 0; p+2 < len(tour); p++ {
		i, j, k := tour[p], tour[p+1], tour[p+2]
		rest := tour.Without(j)
		if seen != nil && seen.Contains(rest) {
			continue
		}

		dur, touching, ok := in.rerouteThrough(i, j, k, sorties)
		if !ok || touching > in.NumDrones() {
			continue
		}
		savings := span(Arc{i, j}) + in.Sigma(j) + span(Arc{j, k}) - dur

		for q := 0; q+1 < len(rest); q++ {
			from, to := rest[q], rest[q+1]
			var candidates []int
			base := span(Arc{from, to})
			if from == i {
				if touching >= in.NumDrones() {
					continue
				}
				for _, v := range free(i) {
					if slices.Contains(free(j), v) {
						candidates = append(candidates, v)
					}
				}
				base = dur
			} else {
				candidates = free(from)
			}

			for _, v := range candidates {
				if !in.Carries(v, j) || !in.FlightFits(v, from, j, to) || in.tau[from][to] > in.Endurance(v, from, j, to) {
					continue
				}
				cost := in.LaunchTime(v) + in.RecoveryTime(v) + math.Max(0, in.SortieDuration(v, from, j, to)-base)
				if net := savings - cost; net > 0 && (!found || net > best.Savings) {
					best = MakespanMove{Customer: j, Launch: from, Recover: to, Tour: rest, Savings: net}
					found = true
				}
			}
		}
	}
	return best, found
}

// rerouteThrough checks that every sortie landing at or launching from j
// still fits its endurance once j is skipped and it uses i or k instead.
// It returns the resulting duration of the merged leg i -> k and the number
// of sorties moved.
func (in *Instance) rerouteThrough(i, j, k int, sorties *domain.SortieSet) (float64, int, bool) {
	dur := in.tau[i][k]
	touching := 0
	moved := make(map[int]bool)

	for _, s := range sorties.LandsAt(j) {
		touching++
		moved[s.Drone] = true
		e := in.Endurance(s.Drone, s.Launch, s.Customer, k)
		if in.tau[i][k] > e || !in.FlightFits(s.Drone, s.Launch, s.Customer, k) {
			return 0, 0, false
		}
		dur = math.Max(dur, in.SortieDuration(s.Drone, s.Launch, s.Customer, k))
	}
	for _, s := range sorties.LaunchesAt(j) {
		touching++
		if moved[s.Drone] {
			// The drone would need two sorties over the same merged leg.
			return 0, 0, false
		}
		e := in.Endurance(s.Drone, i, s.Customer, s.Recover)
		if in.tau[i][k] > e || !in.FlightFits(s.Drone, i, s.Customer, s.Recover) {
			return 0, 0, false
		}
		dur = math.Max(dur, in.SortieDuration(s.Drone, i, s.Customer, s.Recover))
	}
	return dur, touching, true
}
