package domain

// Represents a single truck visit on a truck-alone plan.
// Times are seconds from the start of the run.
type RouteStop struct {
	Node     int
	ArriveAt float64
	DepartAt float64
}

// Represents the truck-alone timing of a tour: the truck drives each leg and
// serves each stop with no drone interaction. Objective is the arrival time at
// the depot copy.
type TruckPlan struct {
	Tour       Tour
	Stops      []RouteStop
	Activities []Activity
	Objective  float64
}

// Arrival time of the truck at node, if the node is on the plan.
func (p TruckPlan) ArrivalAt(node int) (float64, bool) {
	for _, s := range p.Stops {
		if s.Node == node {
			return s.ArriveAt, true
		}
	}
	return 0, false
}
