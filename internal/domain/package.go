package domain

// Represents a delivered parcel: who served the customer and when.
type PackageDelivery struct {
	CustomerID  int
	ServedBy    VehicleKind
	VehicleID   int
	Position    Coordinates
	DeliveredAt float64
}
