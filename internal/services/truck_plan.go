package services

import (
	"errors"
	"fmt"

	"sidekick-route-service/internal/domain"
)

// PlanTruckAlone times a tour as if the truck worked without drones.
//
// The truck departs the depot at time zero, drives each leg and serves each
// stop before moving on. The plan's objective is the arrival time at the
// depot copy and equals TourCost.
func (in *Instance) PlanTruckAlone(t domain.Tour) (domain.TruckPlan, error) {
	if len(t) < 2 || t[0] != in.Depot || t[len(t)-1] != in.DepotReturn {
		return domain.TruckPlan{}, errors.New("plan truck alone: tour must start at the depot and end at its copy")
	}

	truckID := in.Fleet.Truck.ID
	plan := domain.TruckPlan{
		Tour:  t.Clone(),
		Stops: []domain.RouteStop{{Node: t[0]}},
	}

	depart := 0.0
	for p := 1; p < len(t); p++ {
		i, j := t[p-1], t[p]
		arrive := depart + in.tau[i][j]

		plan.Activities = append(plan.Activities, domain.Activity{
			VehicleID:     truckID,
			VehicleKind:   domain.VehicleTruck,
			Status:        domain.TravelTruckEmpty,
			Gantt:         domain.GanttTravel,
			StartTime:     depart,
			StartNode:     i,
			StartPos:      in.Nodes[i].Position,
			EndTime:       arrive,
			EndNode:       j,
			EndPos:        in.Nodes[j].Position,
			Description:   in.driveDescription(i, j),
			DronesOnBoard: []int{},
		})

		done := arrive + in.Sigma(j)
		stop := domain.Activity{
			VehicleID:     truckID,
			VehicleKind:   domain.VehicleTruck,
			Status:        domain.StationaryTruckEmpty,
			Gantt:         domain.GanttDeliver,
			StartTime:     arrive,
			StartNode:     j,
			StartPos:      in.Nodes[j].Position,
			EndTime:       done,
			EndNode:       j,
			EndPos:        in.Nodes[j].Position,
			Description:   fmt.Sprintf("Dropping off package to Customer %d", j),
			DronesOnBoard: []int{},
		}
		if j == in.DepotReturn {
			stop.Gantt = domain.GanttFinished
			stop.Description = "Arrived at the Depot."
		}
		plan.Activities = append(plan.Activities, stop)
		plan.Stops[len(plan.Stops)-1].DepartAt = depart
		plan.Stops = append(plan.Stops, domain.RouteStop{Node: j, ArriveAt: arrive, DepartAt: done})

		depart = done
	}

	plan.Objective = depart
	return plan, nil
}

func (in *Instance) driveDescription(i, j int) string {
	switch {
	case i == in.Depot && j == in.DepotReturn:
		return fmt.Sprintf("Truck %d was not used", in.Fleet.Truck.ID)
	case i == in.Depot:
		return fmt.Sprintf("Driving from Depot to Customer %d", j)
	case j == in.DepotReturn:
		return fmt.Sprintf("Returning to the Depot from Customer %d", i)
	default:
		return fmt.Sprintf("Driving from Customer %d to Customer %d", i, j)
	}
}

// InsertTruckCustomer places customer j on the leg from -> to of the tour
// and re-times the result.
func (in *Instance) InsertTruckCustomer(t domain.Tour, j, from, to int) (domain.TruckPlan, error) {
	next, ok := t.InsertBetween(j, from, to)
	if !ok {
		return domain.TruckPlan{}, fmt.Errorf("insert truck customer %d: leg %d->%d is not on tour %s", j, from, to, t.Key())
	}
	plan, err := in.PlanTruckAlone(next)
	if err != nil {
		return domain.TruckPlan{}, fmt.Errorf("insert truck customer %d: %w", j, err)
	}
	return plan, nil
}
