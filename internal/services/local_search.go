package services

import (
	"slices"

	"sidekick-route-service/internal/domain"
)

// ShiftRecoveries moves drone recoveries away from truck stops where the
// truck sat waiting for them. At each such stop the drone recovered last is
// re-routed to land at the next tour node when its sortie still fits its
// endurance there and the truck's extra transit stays within it. If that
// drone also launches from the stop, its later sorties are handed to a drone
// that is free at the stop.
//
// It returns the updated sortie set and whether anything moved. Shifts that
// would break drone exclusivity or endurance are skipped.
func (in *Instance) ShiftRecoveries(tour domain.Tour, sorties *domain.SortieSet, timing TimingResult) (*domain.SortieSet, bool) {
	out := sorties.Clone()
	waiting := make(map[int]float64, len(timing.NodeWaiting))
	for n, w := range timing.NodeWaiting {
		waiting[n] = w
	}
	pos := tour.Positions()
	shifted := false

	for p := 1; p+1 < len(tour); p++ {
		node := tour[p]
		landings := out.LandsAt(node)
		if waiting[node] <= 0 || len(landings) == 0 {
			continue
		}

		// Latest and second latest recoveries at the stop.
		slices.SortStableFunc(landings, func(a, b domain.Sortie) int {
			da, db := timing.Sorties[a.Customer].RecoveryDone, timing.Sorties[b.Customer].RecoveryDone
			switch {
			case da > db:
				return -1
			case da < db:
				return 1
			}
			return 0
		})
		last := landings[0]
		next := tour[p+1]
		v, i, j := last.Drone, last.Launch, last.Customer

		e := in.Endurance(v, i, j, next)
		if !in.FlightFits(v, i, j, next) {
			continue
		}
		done := timing.Sorties[j].RecoveryDone
		truckDur := timing.Arrive[next] - timing.Depart[i]
		if len(landings) > 1 {
			truckDur -= done - timing.Sorties[landings[1].Customer].RecoveryDone
		} else {
			truckDur -= done - timing.Arrive[node] - in.Sigma(node)
		}
		if truckDur > e {
			continue
		}

		trial := out.Clone()
		moved := domain.Sortie{Drone: v, Launch: i, Customer: j, Recover: next}
		trial.Replace(moved)

		if launchesFrom(trial, node, v) {
			spare, ok := in.freeDroneAt(trial, tour, node)
			if !ok {
				continue
			}
			if !in.swapLaterSorties(trial, pos, p, v, spare) {
				continue
			}
		}
		if trial.ValidateExclusive(tour) != nil {
			continue
		}

		out = trial
		if next != in.DepotReturn {
			waiting[next] -= in.RecoveryTime(v)
		}
		shifted = true
	}
	return out, shifted
}

func launchesFrom(s *domain.SortieSet, node, v int) bool {
	for _, x := range s.LaunchesAt(node) {
		if x.Drone == v {
			return true
		}
	}
	return false
}

// freeDroneAt returns the lowest-id drone with no sortie in flight over the
// leg leaving the tour node at position of node.
func (in *Instance) freeDroneAt(s *domain.SortieSet, tour domain.Tour, node int) (int, bool) {
	pos := tour.Positions()
	at := pos[node]
	busy := make(map[int]bool)
	for _, x := range s.All() {
		if pos[x.Launch] <= at && at < pos[x.Recover] {
			busy[x.Drone] = true
		}
	}
	ids := in.DroneIDs()
	slices.Sort(ids)
	for _, v := range ids {
		if !busy[v] {
			return v, true
		}
	}
	return 0, false
}

// swapLaterSorties exchanges drones a and b on every sortie launched at or
// after tour position from. It fails when a swapped sortie does not fit the
// new drone.
func (in *Instance) swapLaterSorties(s *domain.SortieSet, pos map[int]int, from, a, b int) bool {
	var swapped []domain.Sortie
	for _, x := range s.All() {
		if pos[x.Launch] < from || (x.Drone != a && x.Drone != b) {
			continue
		}
		y := x
		if x.Drone == a {
			y.Drone = b
		} else {
			y.Drone = a
		}
		if !in.Carries(y.Drone, y.Customer) || !in.FlightFits(y.Drone, y.Launch, y.Customer, y.Recover) {
			return false
		}
		swapped = append(swapped, y)
	}
	for _, y := range swapped {
		s.Replace(y)
	}
	return true
}
