package domain

// Time (seconds) and distance (meters) to move a vehicle between two nodes,
// split into takeoff, cruise and landing phases. Truck legs only populate the
// cruise phase.
type TravelLeg struct {
	TakeoffTime float64
	FlyTime     float64
	LandTime    float64
	TotalTime   float64
	TakeoffDist float64
	FlyDist     float64
	LandDist    float64
	TotalDist   float64
}

// Build a ground leg from a matrix entry.
func NewTruckLeg(seconds, meters float64) TravelLeg {
	return TravelLeg{
		FlyTime:   seconds,
		TotalTime: seconds,
		FlyDist:   meters,
		TotalDist: meters,
	}
}

type LegKey struct {
	From int
	To   int
}

// Precomputed truck travel data keyed by (from, to) node ids.
type TruckMatrix map[LegKey]TravelLeg

func (m TruckMatrix) Get(from, to int) (TravelLeg, bool) {
	leg, ok := m[LegKey{From: from, To: to}]
	return leg, ok
}

func (m TruckMatrix) Set(from, to int, leg TravelLeg) {
	m[LegKey{From: from, To: to}] = leg
}
