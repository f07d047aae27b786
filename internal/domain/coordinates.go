package domain

import "fmt"

// Geographic position of a node (degrees) plus ground altitude in meters.
type Coordinates struct {
	Lat       float64
	Lon       float64
	AltMeters float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Key is a stable string form used for cache lookups.
func (c Coordinates) Key() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon) }
