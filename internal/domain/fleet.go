package domain

import (
	"errors"
	"fmt"
)

// One truck plus the drones that ride on it.
type Fleet struct {
	Truck  Vehicle
	Drones []Vehicle
}

// NewFleet builds a fleet from a vehicle table, keeping the first maxDrones
// drones in table order (all of them when maxDrones < 0). It reports how many
// drones the table actually offered.
func NewFleet(vehicles []Vehicle, maxDrones int) (*Fleet, int, error) {
	var trucks []Vehicle
	var drones []Vehicle
	offered := 0
	seen := make(map[int]struct{}, len(vehicles))

	for _, v := range vehicles {
		if _, ok := seen[v.ID]; ok {
			return nil, 0, &ConfigurationError{Op: "new fleet", Msg: fmt.Sprintf("duplicate vehicle id %d", v.ID)}
		}
		seen[v.ID] = struct{}{}

		switch v.Kind {
		case VehicleTruck:
			trucks = append(trucks, v)
		case VehicleDrone:
			offered++
			if maxDrones < 0 || len(drones) < maxDrones {
				drones = append(drones, v)
			}
		default:
			return nil, 0, &ConfigurationError{Op: "new fleet", Msg: fmt.Sprintf("vehicle %d has unknown type %d", v.ID, v.Kind)}
		}
	}

	if len(trucks) == 0 {
		return nil, 0, errors.New("new fleet: vehicle table has no truck")
	}
	if len(trucks) > 1 {
		return nil, 0, &ConfigurationError{Op: "new fleet", Msg: fmt.Sprintf("exactly one truck is supported, got %d", len(trucks))}
	}

	return &Fleet{Truck: trucks[0], Drones: drones}, offered, nil
}

// Look up a drone by vehicle id.
func (f *Fleet) Drone(id int) (Vehicle, bool) {
	for _, d := range f.Drones {
		if d.ID == id {
			return d, true
		}
	}
	return Vehicle{}, false
}

func (f *Fleet) DroneIDs() []int {
	ids := make([]int, 0, len(f.Drones))
	for _, d := range f.Drones {
		ids = append(ids, d.ID)
	}
	return ids
}

// ApplyServiceTimes gives every customer the truck's service time and the
// first drone's service time. Depot nodes keep zero.
func (f *Fleet) ApplyServiceTimes(nodes []Node) {
	droneService := 0.0
	if len(f.Drones) > 0 {
		droneService = f.Drones[0].ServiceTime
	}
	for i := range nodes {
		if !nodes[i].IsCustomer() {
			continue
		}
		nodes[i].TruckServiceTime = f.Truck.ServiceTime
		nodes[i].DroneServiceTime = droneService
	}
}
