package dto

type NodeRequest struct {
	ID        int     `json:"id"`
	Type      int     `json:"type"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AltMeters float64 `json:"alt_meters"`
	ParcelLbs float64 `json:"parcel_lbs"`
	Address   string  `json:"address"`
}

type VehicleRequest struct {
	ID           int     `json:"id"`
	Type         int     `json:"type"`
	TakeoffSpeed float64 `json:"takeoff_speed"`
	CruiseSpeed  float64 `json:"cruise_speed"`
	LandingSpeed float64 `json:"landing_speed"`
	YawRateDeg   float64 `json:"yaw_rate_deg"`
	CruiseAlt    float64 `json:"cruise_alt"`
	CapacityLbs  float64 `json:"capacity_lbs"`
	LaunchTime   float64 `json:"launch_time"`
	RecoveryTime float64 `json:"recovery_time"`
	ServiceTime  float64 `json:"service_time"`
	BatteryPower float64 `json:"battery_power"`
	FlightRange  string  `json:"flight_range"`
}

type TruckLegRequest struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Seconds float64 `json:"seconds"`
	Meters  float64 `json:"meters"`
}

// Unset fields take the server's configured defaults.
type PlanOptions struct {
	Drones              *int     `json:"drones"`
	RequireTruckAtDepot *bool    `json:"require_truck_at_depot"`
	RequireDriver       *bool    `json:"require_driver"`
	TimeBudgetSeconds   *float64 `json:"time_budget_seconds"`
	EnergyModel         string   `json:"energy_model"`
}

type PlanRequest struct {
	ProblemName string            `json:"problem_name"`
	Nodes       []NodeRequest     `json:"nodes"`
	Vehicles    []VehicleRequest  `json:"vehicles"`
	TruckLegs   []TruckLegRequest `json:"truck_legs"`
	Options     PlanOptions       `json:"options"`
}

type SortieResponse struct {
	Drone    int `json:"drone"`
	Launch   int `json:"launch"`
	Customer int `json:"customer"`
	Recover  int `json:"recover"`
}

type ActivityResponse struct {
	VehicleID     int     `json:"vehicle_id"`
	VehicleType   string  `json:"vehicle_type"`
	Activity      string  `json:"activity"`
	Status        string  `json:"status"`
	StartTime     float64 `json:"start_time"`
	StartNode     int     `json:"start_node"`
	EndTime       float64 `json:"end_time"`
	EndNode       int     `json:"end_node"`
	Description   string  `json:"description"`
	DronesOnBoard []int   `json:"drones_on_board,omitempty"`
}

type PlanResponse struct {
	Run            RunResponse        `json:"run"`
	Tour           []int              `json:"tour"`
	TruckCustomers []int              `json:"truck_customers"`
	DroneCustomers []int              `json:"drone_customers"`
	Sorties        []SortieResponse   `json:"sorties"`
	Activities     []ActivityResponse `json:"activities"`
	Thresholds     int                `json:"thresholds"`
	ToursExplored  int                `json:"tours_explored"`
	BudgetExpired  bool               `json:"budget_expired"`
}
