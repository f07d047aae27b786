package services

import (
	"fmt"
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
)

// Gaps shorter than this are not reported as idle time.
const idleThreshold = 0.01

func (in *Instance) activities(tour domain.Tour, sorties *domain.SortieSet, sim *simulation) []domain.Activity {
	acts := in.truckActivities(tour, sim)
	for _, s := range sorties.All() {
		acts = append(acts, in.droneActivities(s, sim.times[s.Customer])...)
	}
	domain.SortActivities(acts)
	return acts
}

type riders map[int]bool

func (r riders) list() []int {
	out := make([]int, 0, len(r))
	for v := range r {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func (in *Instance) truckActivities(tour domain.Tour, sim *simulation) []domain.Activity {
	truckID := in.Fleet.Truck.ID
	onBoard := make(riders, in.NumDrones())
	for _, v := range in.DroneIDs() {
		onBoard[v] = true
	}

	act := func(status domain.ActivityStatus, gantt domain.GanttStatus, start, end float64, from, to int, desc string) domain.Activity {
		return domain.Activity{
			VehicleID:     truckID,
			VehicleKind:   domain.VehicleTruck,
			Status:        status,
			Gantt:         gantt,
			StartTime:     start,
			StartNode:     from,
			StartPos:      in.Nodes[from].Position,
			EndTime:       end,
			EndNode:       to,
			EndPos:        in.Nodes[to].Position,
			Description:   desc,
			DronesOnBoard: onBoard.list(),
		}
	}
	stationary := func() domain.ActivityStatus {
		if len(onBoard) > 0 {
			return domain.StationaryTruckWithUAV
		}
		return domain.StationaryTruckEmpty
	}

	var out []domain.Activity
	for p, n := range tour {
		if p > 0 {
			prev := tour[p-1]
			status := domain.TravelTruckEmpty
			if len(onBoard) > 0 {
				status = domain.TravelTruckWithUAV
			}
			out = append(out, act(status, domain.GanttTravel, sim.depart[prev], sim.arrive[n], prev, n,
				fmt.Sprintf("Travel from node %d to node %d", prev, n)))
		}

		ops := slices.Clone(sim.ops[n])
		slices.SortStableFunc(ops, func(a, b *nodeOp) int {
			switch {
			case a.start < b.start:
				return -1
			case a.start > b.start:
				return 1
			}
			return 0
		})

		cursor := sim.arrive[n]
		for _, op := range ops {
			if !op.truck {
				applyRiders(onBoard, op)
				continue
			}
			if gap := op.start - cursor; gap > idleThreshold {
				desc := fmt.Sprintf("Idle for %3.0f seconds", gap)
				if n == in.Depot {
					desc = fmt.Sprintf("Idle at depot for %3.0f seconds", gap)
				}
				out = append(out, act(stationary(), domain.GanttIdle, cursor, op.start, n, n, desc))
			}

			switch op.kind {
			case opService:
				out = append(out, act(stationary(), domain.GanttDeliver, op.start, op.end, n, n,
					fmt.Sprintf("Dropping off package to Customer %d", n)))
			case opRecover:
				out = append(out, act(stationary(), domain.GanttRecover, op.start, op.end, n, n,
					fmt.Sprintf("Retrieving UAV %d", op.s.Drone)))
			case opLaunch:
				out = append(out, act(stationary(), domain.GanttLaunch, op.start, op.end, n, n,
					fmt.Sprintf("Launching UAV %d", op.s.Drone)))
			}
			applyRiders(onBoard, op)
			cursor = math.Max(cursor, op.end)
		}

		if gap := sim.depart[n] - cursor; n != in.DepotReturn && gap > idleThreshold {
			out = append(out, act(stationary(), domain.GanttIdle, cursor, sim.depart[n], n, n,
				fmt.Sprintf("Idle for %3.0f seconds before departing", gap)))
		}
	}

	end := sim.depart[in.DepotReturn]
	out = append(out, act(stationary(), domain.GanttFinished, end, end, in.DepotReturn, in.DepotReturn,
		"Arrived at the Depot.  Total Time = "+clockString(end)))
	return out
}

func applyRiders(onBoard riders, op *nodeOp) {
	switch op.kind {
	case opLaunch:
		delete(onBoard, op.s.Drone)
	case opRecover:
		if op.truck {
			onBoard[op.s.Drone] = true
		}
	}
}

func clockString(seconds float64) string {
	s := int(math.Round(seconds))
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// droneActivities breaks one sortie into its flight phases.
func (in *Instance) droneActivities(s domain.Sortie, t SortieTimes) []domain.Activity {
	v, i, j, k := s.Drone, s.Launch, s.Customer, s.Recover
	d := in.drones[v]
	out1, back := in.DroneLeg(v, i, j), in.DroneLeg(v, j, k)

	pos := func(n int, aloft bool) domain.Coordinates {
		c := in.Nodes[n].Position
		if aloft {
			c.AltMeters += d.CruiseAlt
		}
		return c
	}
	act := func(status domain.ActivityStatus, gantt domain.GanttStatus, start, end float64, from int, fromAloft bool, to int, toAloft bool, desc string) domain.Activity {
		return domain.Activity{
			VehicleID:     v,
			VehicleKind:   domain.VehicleDrone,
			Status:        status,
			Gantt:         gantt,
			StartTime:     start,
			StartNode:     from,
			StartPos:      pos(from, fromAloft),
			EndTime:       end,
			EndNode:       to,
			EndPos:        pos(to, toAloft),
			Description:   desc,
			DronesOnBoard: []int{},
		}
	}

	takeoff := "Takeoff from Depot"
	if i != in.Depot {
		takeoff = fmt.Sprintf("Takeoff from truck at Customer %d", i)
	}
	flyBack, idle, land, recovered := "Fly to depot", "Idle above depot location", "Land at depot", "Recovered at depot"
	if k != in.DepotReturn {
		flyBack = fmt.Sprintf("Fly to truck at customer %d", k)
		idle = fmt.Sprintf("Idle above rendezvous location (customer %d)", k)
		land = fmt.Sprintf("Land at truck rendezvous location (customer %d)", k)
		recovered = fmt.Sprintf("Recovered by truck at customer %d", k)
	}

	clock := t.LaunchDone
	up := clock + out1.TakeoffTime
	cruise := up + out1.FlyTime
	served := t.ArriveCustomer + in.SigmaPrime(j)
	up2 := served + back.TakeoffTime
	above := up2 + back.FlyTime
	hover := t.RecoveryStart - t.ArriveRecovery

	acts := []domain.Activity{
		act(domain.StationaryUAVPackage, domain.GanttLaunch, t.LaunchStart, t.LaunchDone, i, false, i, false, "Prepare to launch from truck"),
		act(domain.VerticalUAVPackage, domain.GanttTravel, clock, up, i, false, i, true, takeoff),
		act(domain.TravelUAVPackage, domain.GanttTravel, up, cruise, i, true, j, true, fmt.Sprintf("Fly to UAV customer %d", j)),
		act(domain.VerticalUAVPackage, domain.GanttTravel, cruise, t.ArriveCustomer, j, true, j, false, fmt.Sprintf("Land at UAV customer %d", j)),
		act(domain.StationaryUAVPackage, domain.GanttDeliver, t.ArriveCustomer, served, j, false, j, false, fmt.Sprintf("Serving UAV customer %d", j)),
		act(domain.VerticalUAVEmpty, domain.GanttTravel, served, up2, j, false, j, true, fmt.Sprintf("Takeoff from UAV customer %d", j)),
		act(domain.TravelUAVEmpty, domain.GanttTravel, up2, above, j, true, k, true, flyBack),
	}
	if hover > idleThreshold {
		acts = append(acts, act(domain.StationaryUAVEmpty, domain.GanttIdle, above, above+hover, k, true, k, true, idle))
	} else {
		hover = 0
	}
	acts = append(acts,
		act(domain.VerticalUAVEmpty, domain.GanttTravel, above+hover, t.RecoveryStart, k, true, k, false, land),
		act(domain.StationaryUAVEmpty, domain.GanttRecover, t.RecoveryStart, t.RecoveryDone, k, false, k, false, recovered),
	)
	return acts
}
