package kinematics

import (
	"math"

	"sidekick-route-service/internal/domain"
)

// Pose is a position plus heading in degrees (UnknownHeading if unknown).
type Pose struct {
	Position   domain.Coordinates
	HeadingDeg float64
}

// Progress is the outcome of advancing along a leg for a bounded time.
type Progress struct {
	Pose           Pose
	RemainingDist  float64
	RemainingTime  float64
	LeftoverBudget float64
}

// MoveAsset advances a drone from pose toward goal for at most budget
// seconds, following the same phases as Travel: climb, yaw, cruise, then
// rotate to the goal heading and descend.
func MoveAsset(p Profile, pose Pose, goal domain.Coordinates, goalHeadingDeg, budget float64) Progress {
	leg := Travel(p, pose.Position, goal, pose.HeadingDeg, goalHeadingDeg)
	if budget >= leg.TotalTime {
		end := Pose{Position: goal, HeadingDeg: pose.HeadingDeg}
		switch {
		case goalHeadingDeg > UnknownHeading:
			end.HeadingDeg = goalHeadingDeg
		case GroundDistance(pose.Position, goal) > DistTol:
			end.HeadingDeg = toDeg(Bearing(pose.Position, goal))
		}
		return Progress{Pose: end, LeftoverBudget: budget - leg.TotalTime}
	}

	cur := pose
	t := budget
	moved := 0.0
	done := func() Progress {
		return Progress{
			Pose:          cur,
			RemainingDist: math.Max(0, leg.TotalDist-moved),
			RemainingTime: leg.TotalTime - budget,
		}
	}

	colocated := GroundDistance(pose.Position, goal) <= DistTol
	bearingDeg := toDeg(Bearing(pose.Position, goal))

	if !colocated {
		climbTime := math.Abs(p.CruiseAlt-cur.Position.AltMeters) / p.TakeoffSpeed
		if t < climbTime {
			step := t * p.TakeoffSpeed
			cur.Position.AltMeters = approach(cur.Position.AltMeters, p.CruiseAlt, step)
			moved += step
			return done()
		}
		moved += math.Abs(p.CruiseAlt - cur.Position.AltMeters)
		cur.Position.AltMeters = p.CruiseAlt
		t -= climbTime

		yawTime := math.Pi / toRad(p.YawRateDeg)
		if cur.HeadingDeg > UnknownHeading {
			yawTime = turnAngle(toRad(cur.HeadingDeg), toRad(bearingDeg)) / toRad(p.YawRateDeg)
		}
		if t < yawTime {
			if cur.HeadingDeg > UnknownHeading {
				cur.HeadingDeg = rotateToward(cur.HeadingDeg, bearingDeg, t*p.YawRateDeg)
			}
			return done()
		}
		cur.HeadingDeg = bearingDeg
		t -= yawTime

		if t < leg.FlyTime {
			f := t / leg.FlyTime
			lat, lon := intermediate(pose.Position, goal, f)
			cur.Position.Lat, cur.Position.Lon = lat, lon
			moved += f * leg.FlyDist
			return done()
		}
		cur.Position.Lat, cur.Position.Lon = goal.Lat, goal.Lon
		moved += leg.FlyDist
		t -= leg.FlyTime
	}

	if goalHeadingDeg > UnknownHeading {
		// Arrival rotation starts from the straight-line bearing, which is
		// north when already over the goal.
		startDeg := bearingDeg
		if colocated {
			startDeg = 0
		}
		rotTime := turnAngle(toRad(startDeg), toRad(goalHeadingDeg)) / toRad(p.YawRateDeg)
		if t < rotTime {
			cur.HeadingDeg = rotateToward(startDeg, goalHeadingDeg, t*p.YawRateDeg)
			return done()
		}
		cur.HeadingDeg = goalHeadingDeg
		t -= rotTime
	}

	step := t * p.LandSpeed
	cur.Position.AltMeters = approach(cur.Position.AltMeters, goal.AltMeters, step)
	moved += step
	return done()
}

// approach moves x toward target by at most step.
func approach(x, target, step float64) float64 {
	if x < target {
		return math.Min(target, x+step)
	}
	return math.Max(target, x-step)
}

// rotateToward turns heading toward target by at most stepDeg along the
// shorter direction.
func rotateToward(headingDeg, targetDeg, stepDeg float64) float64 {
	diff := math.Mod(targetDeg-headingDeg+540, 360) - 180
	if math.Abs(diff) <= stepDeg {
		return targetDeg
	}
	return math.Mod(headingDeg+math.Copysign(stepDeg, diff)+360, 360)
}

// intermediate returns the point a fraction f along the great circle from a
// to b, in degrees.
func intermediate(a, b domain.Coordinates, f float64) (float64, float64) {
	lat1, lon1 := toRad(a.Lat), toRad(a.Lon)
	lat2, lon2 := toRad(b.Lat), toRad(b.Lon)

	delta := GroundDistance(a, b) / EarthRadius
	if delta == 0 {
		return a.Lat, a.Lon
	}
	sa := math.Sin((1-f)*delta) / math.Sin(delta)
	sb := math.Sin(f*delta) / math.Sin(delta)

	x := sa*math.Cos(lat1)*math.Cos(lon1) + sb*math.Cos(lat2)*math.Cos(lon2)
	y := sa*math.Cos(lat1)*math.Sin(lon1) + sb*math.Cos(lat2)*math.Sin(lon2)
	z := sa*math.Sin(lat1) + sb*math.Sin(lat2)

	return toDeg(math.Atan2(z, math.Hypot(x, y))), toDeg(math.Atan2(y, x))
}

// Interpolate returns the ground point a fraction f of the way from a to b,
// with altitude interpolated linearly. f is clamped to [0, 1].
func Interpolate(a, b domain.Coordinates, f float64) domain.Coordinates {
	f = math.Max(0, math.Min(1, f))
	lat, lon := intermediate(a, b, f)
	return domain.Coordinates{Lat: lat, Lon: lon, AltMeters: a.AltMeters + f*(b.AltMeters-a.AltMeters)}
}
