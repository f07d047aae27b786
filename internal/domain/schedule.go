package domain

import "slices"

type ActivityStatus int

const (
	TravelUAVPackage ActivityStatus = iota + 1
	TravelUAVEmpty
	TravelTruckWithUAV
	TravelTruckEmpty
	VerticalUAVEmpty
	VerticalUAVPackage
	StationaryUAVEmpty
	StationaryUAVPackage
	StationaryTruckWithUAV
	StationaryTruckEmpty
)

func (s ActivityStatus) String() string {
	switch s {
	case TravelUAVPackage:
		return "UAV travels with parcel"
	case TravelUAVEmpty:
		return "UAV travels empty"
	case TravelTruckWithUAV:
		return "Truck travels with UAV(s) on board"
	case TravelTruckEmpty:
		return "Truck travels with no UAVs on board"
	case VerticalUAVEmpty:
		return "UAV taking off or landing with no parcels"
	case VerticalUAVPackage:
		return "UAV taking off or landing with a parcel"
	case StationaryUAVEmpty:
		return "UAV is stationary without a parcel"
	case StationaryUAVPackage:
		return "UAV is stationary with a parcel"
	case StationaryTruckWithUAV:
		return "Truck is stationary with UAV(s) on board"
	case StationaryTruckEmpty:
		return "Truck is stationary with no UAVs on board"
	default:
		return "Unknown"
	}
}

// Coarse category used for Gantt-style reporting.
type GanttStatus int

const (
	GanttIdle GanttStatus = iota + 1
	GanttTravel
	GanttDeliver
	GanttRecover
	GanttLaunch
	GanttFinished
)

func (g GanttStatus) String() string {
	switch g {
	case GanttIdle:
		return "Idle"
	case GanttTravel:
		return "Traveling"
	case GanttDeliver:
		return "Making Delivery"
	case GanttRecover:
		return "UAV Recovery"
	case GanttLaunch:
		return "UAV Launch"
	case GanttFinished:
		return "Vehicle Tasks Complete"
	default:
		return "Unknown"
	}
}

// One timed segment of a vehicle's plan.
type Activity struct {
	VehicleID     int
	VehicleKind   VehicleKind
	Status        ActivityStatus
	Gantt         GanttStatus
	StartTime     float64
	StartNode     int
	StartPos      Coordinates
	EndTime       float64
	EndNode       int
	EndPos        Coordinates
	Description   string
	DronesOnBoard []int
}

// Timed plan for the whole fleet.
type Schedule struct {
	Makespan     float64
	Activities   []Activity
	Packages     []PackageDelivery
	TruckWaiting float64
	DroneWaiting float64
	// Time the truck spends at the depot before its first departure
	// beyond launch work.
	InitialIdle float64
}

// Activities of one vehicle in start-time order.
func (s Schedule) ActivitiesFor(vehicleID int) []Activity {
	var out []Activity
	for _, a := range s.Activities {
		if a.VehicleID == vehicleID {
			out = append(out, a)
		}
	}
	return out
}

// SortActivities orders activities by vehicle then start time.
func SortActivities(acts []Activity) {
	slices.SortStableFunc(acts, func(a, b Activity) int {
		if a.VehicleID != b.VehicleID {
			return a.VehicleID - b.VehicleID
		}
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		}
		return 0
	})
}

// Best plan found by the planner.
type Solution struct {
	Objective      float64
	Tour           Tour
	Sorties        []Sortie
	TruckCustomers []int
	DroneCustomers []int
	Schedule       Schedule
}
