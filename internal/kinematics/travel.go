// Package kinematics computes multirotor travel legs on a spherical earth and
// simulates partial progress along a leg.
package kinematics

import (
	"math"

	"sidekick-route-service/internal/domain"
)

const (
	EarthRadius = 6378100.0 // meters

	// Positions closer than DistTol meters, or altitudes closer than AltTol
	// meters, are treated as identical.
	DistTol = 1.0
	AltTol  = 1.0

	// UnknownHeading as an initial heading means the worst-case 180 degree
	// turn is assumed; as a goal heading it means "don't care".
	UnknownHeading = -361.0

	MetersPerMile = 1609.34
)

// Profile holds the flight parameters of one drone.
type Profile struct {
	TakeoffSpeed float64 // m/s, vertical
	CruiseSpeed  float64 // m/s
	LandSpeed    float64 // m/s, vertical
	YawRateDeg   float64 // deg/s
	CruiseAlt    float64 // meters
}

func ProfileOf(v domain.Vehicle) Profile {
	return Profile{
		TakeoffSpeed: v.TakeoffSpeed,
		CruiseSpeed:  v.CruiseSpeed,
		LandSpeed:    v.LandingSpeed,
		YawRateDeg:   v.YawRateDeg,
		CruiseAlt:    v.CruiseAlt,
	}
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// wrap maps an angle in radians into [0, 2*pi).
func wrap(rad float64) float64 {
	r := math.Mod(rad, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r
}

// GroundDistance returns the haversine distance in meters between a and b,
// ignoring altitude.
func GroundDistance(a, b domain.Coordinates) float64 {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	s1 := math.Sin((lat2 - lat1) / 2)
	s2 := math.Sin((lon2 - lon1) / 2)
	h := s1*s1 + math.Cos(lat1)*math.Cos(lat2)*s2*s2
	return 2 * EarthRadius * math.Asin(math.Sqrt(math.Min(1, h)))
}

// Bearing returns the initial great-circle bearing from a to b in radians,
// in [0, 2*pi).
func Bearing(a, b domain.Coordinates) float64 {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	y := math.Sin(lon2-lon1) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(lon2-lon1)
	return wrap(math.Atan2(y, x))
}

// turnAngle is the smaller rotation (radians) between two headings.
func turnAngle(fromRad, toRad float64) float64 {
	d := wrap(fromRad - toRad)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// Travel computes the takeoff, cruise and landing phases of a flight from
// one position to another. Headings are in degrees; pass UnknownHeading when
// the initial heading is not known or the goal heading does not matter.
func Travel(p Profile, from, to domain.Coordinates, initHeadingDeg, goalHeadingDeg float64) domain.TravelLeg {
	var leg domain.TravelLeg

	colocated := GroundDistance(from, to) <= DistTol
	if colocated {
		from.Lat, from.Lon = to.Lat, to.Lon
	}
	if math.Abs(from.AltMeters-to.AltMeters) <= AltTol {
		from.AltMeters = to.AltMeters
	}

	if colocated && from.AltMeters == to.AltMeters && goalHeadingDeg <= UnknownHeading {
		return leg
	}

	yawRate := toRad(p.YawRateDeg)
	bearing := Bearing(from, to)

	if !colocated {
		climb := math.Abs(p.CruiseAlt - from.AltMeters)
		leg.TakeoffTime += climb / p.TakeoffSpeed
		leg.TakeoffDist += climb

		if initHeadingDeg <= UnknownHeading {
			leg.TakeoffTime += math.Pi / yawRate
		} else {
			leg.TakeoffTime += turnAngle(toRad(initHeadingDeg), bearing) / yawRate
		}
	}

	cruise := GroundDistance(from, to)
	leg.FlyTime = cruise / p.CruiseSpeed
	leg.FlyDist = cruise

	if goalHeadingDeg > UnknownHeading {
		leg.LandTime += turnAngle(bearing, toRad(goalHeadingDeg)) / yawRate
	}

	descent := math.Abs(p.CruiseAlt - to.AltMeters)
	if colocated {
		descent = math.Abs(from.AltMeters - to.AltMeters)
	}
	leg.LandTime += descent / p.LandSpeed
	leg.LandDist += descent

	leg.TotalTime = leg.TakeoffTime + leg.FlyTime + leg.LandTime
	leg.TotalDist = leg.TakeoffDist + leg.FlyDist + leg.LandDist
	return leg
}
