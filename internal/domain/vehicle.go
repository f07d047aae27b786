package domain

type VehicleKind int

const (
	VehicleTruck VehicleKind = 1
	VehicleDrone VehicleKind = 2
)

func (k VehicleKind) String() string {
	switch k {
	case VehicleTruck:
		return "Truck"
	case VehicleDrone:
		return "UAV"
	default:
		return "Unknown"
	}
}

// Flight-range classes used to select calibrated energy coefficients.
const (
	RangeLow  = "low"
	RangeHigh = "high"
)

// Performance and energy parameters of a truck or drone.
// Speeds are m/s, times are seconds, battery energy is joules.
type Vehicle struct {
	ID           int
	Kind         VehicleKind
	TakeoffSpeed float64
	CruiseSpeed  float64
	LandingSpeed float64
	YawRateDeg   float64
	CruiseAlt    float64
	CapacityLbs  float64
	LaunchTime   float64
	RecoveryTime float64
	ServiceTime  float64
	BatteryPower float64
	FlightRange  string
}

func (v Vehicle) IsDrone() bool { return v.Kind == VehicleDrone }
