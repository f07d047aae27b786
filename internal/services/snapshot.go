package services

import (
	"math"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/kinematics"
)

// VehicleState is where one vehicle is at a given moment of a schedule.
type VehicleState struct {
	VehicleID  int
	Kind       domain.VehicleKind
	Position   domain.Coordinates
	HeadingDeg float64
	// Node the vehicle is at, or -1 while it is moving between nodes.
	Node int
	// Id of the truck carrying a drone, or 0.
	RidingOn    int
	Status      domain.ActivityStatus
	Description string
}

// Snapshot places every vehicle of the fleet at time t of sched. Trucks move
// along straight lines between nodes; drones follow their flight profile.
// A drone with no activity covering t rides the truck, unless it landed at
// the depot before the truck got back.
func (in *Instance) Snapshot(sched domain.Schedule, t float64) []VehicleState {
	truckID := in.Fleet.Truck.ID
	truck := in.truckState(sched.ActivitiesFor(truckID), t)

	out := []VehicleState{truck}
	for _, v := range in.DroneIDs() {
		out = append(out, in.droneState(v, sched.ActivitiesFor(v), t, truck))
	}
	return out
}

// covering returns the activity active at t, or the last one started before
// it and false.
func covering(acts []domain.Activity, t float64) (domain.Activity, bool, bool) {
	var last domain.Activity
	started := false
	for _, a := range acts {
		if a.StartTime > t {
			break
		}
		last, started = a, true
		if t < a.EndTime {
			return a, true, true
		}
	}
	return last, started, false
}

func fraction(a domain.Activity, t float64) float64 {
	if a.EndTime <= a.StartTime {
		return 1
	}
	return min(1, max(0, (t-a.StartTime)/(a.EndTime-a.StartTime)))
}

func (in *Instance) truckState(acts []domain.Activity, t float64) VehicleState {
	st := VehicleState{
		VehicleID:  in.Fleet.Truck.ID,
		Kind:       domain.VehicleTruck,
		Position:   in.Nodes[in.Depot].Position,
		HeadingDeg: kinematics.UnknownHeading,
		Node:       in.Depot,
		Status:     domain.StationaryTruckWithUAV,
	}
	a, started, active := covering(acts, t)
	if !started {
		return st
	}
	st.Status, st.Description = a.Status, a.Description
	if !active {
		st.Position, st.Node = a.EndPos, a.EndNode
		return st
	}
	if a.Gantt == domain.GanttTravel {
		st.Position = kinematics.Interpolate(a.StartPos, a.EndPos, fraction(a, t))
		st.HeadingDeg = kinematics.Bearing(a.StartPos, a.EndPos) * 180 / math.Pi
		st.Node = -1
		return st
	}
	st.Position, st.Node = a.StartPos, a.StartNode
	return st
}

func (in *Instance) droneState(v int, acts []domain.Activity, t float64, truck VehicleState) VehicleState {
	riding := VehicleState{
		VehicleID:  v,
		Kind:       domain.VehicleDrone,
		Position:   truck.Position,
		HeadingDeg: truck.HeadingDeg,
		Node:       truck.Node,
		RidingOn:   truck.VehicleID,
		Status:     domain.StationaryUAVEmpty,
	}
	a, started, active := covering(acts, t)
	if !started {
		return riding
	}
	if !active {
		// Landed at the depot ahead of the truck.
		if a.Gantt == domain.GanttRecover && a.EndNode == in.DepotReturn && truck.Node != in.DepotReturn {
			return VehicleState{
				VehicleID:   v,
				Kind:        domain.VehicleDrone,
				Position:    a.EndPos,
				HeadingDeg:  kinematics.UnknownHeading,
				Node:        a.EndNode,
				Status:      domain.StationaryUAVEmpty,
				Description: a.Description,
			}
		}
		riding.Description = a.Description
		return riding
	}

	st := VehicleState{
		VehicleID:   v,
		Kind:        domain.VehicleDrone,
		Position:    a.StartPos,
		HeadingDeg:  kinematics.UnknownHeading,
		Node:        a.StartNode,
		Status:      a.Status,
		Description: a.Description,
	}
	switch a.Status {
	case domain.TravelUAVPackage, domain.TravelUAVEmpty:
		st.Node = -1
		p := kinematics.ProfileOf(in.drones[v])
		p.CruiseAlt = a.StartPos.AltMeters
		leg := kinematics.Travel(p, a.StartPos, a.EndPos, kinematics.UnknownHeading, kinematics.UnknownHeading)
		pr := kinematics.MoveAsset(p, kinematics.Pose{Position: a.StartPos, HeadingDeg: kinematics.UnknownHeading},
			a.EndPos, kinematics.UnknownHeading, fraction(a, t)*leg.TotalTime)
		st.Position, st.HeadingDeg = pr.Pose.Position, pr.Pose.HeadingDeg
	case domain.VerticalUAVEmpty, domain.VerticalUAVPackage:
		st.Position = kinematics.Interpolate(a.StartPos, a.EndPos, fraction(a, t))
	}
	return st
}
