package energy

import "math"

// Multirotor power coefficients, fitted for a small quadcopter.
const (
	k1        = 0.8554 // dimensionless
	k2        = 0.3051 // sqrt(kg/m)
	c1        = 2.8037 // sqrt(m/kg)
	c2        = 0.3177 // sqrt(m/kg)
	c4        = 0.0296 // kg/m
	c5        = 0.0279 // N·s/m
	gravity   = 9.8
	frameKg   = 1.5
	lbsToKg   = 0.453592
	attackRad = 10 * math.Pi / 180
)

// verticalPower is the power (W) to climb or descend at speed v carrying
// total mass kg.
func verticalPower(kg, v float64) float64 {
	w := kg * gravity
	return k1*w*(v/2+math.Sqrt(v*v/4+w/(k2*k2))) + c2*math.Pow(w, 1.5)
}

// levelPower is the power (W) to cruise level at airspeed v.
func levelPower(kg, v float64) float64 {
	w := kg * gravity
	va := v * math.Cos(attackRad)
	lift := w - c5*va*va
	return (c1+c2)*math.Pow(lift*lift+math.Pow(c4*v*v, 2), 0.75) + c4*v*v*v
}

func hoverPower(kg float64) float64 {
	return (c1 + c2) * math.Pow(kg*gravity, 1.5)
}

func nonlinearEndurance(s Sortie) float64 {
	v := s.Vehicle
	loaded := frameKg + s.ParcelLbs*lbsToKg

	used := verticalPower(loaded, v.TakeoffSpeed)*s.Out.TakeoffTime +
		levelPower(loaded, v.CruiseSpeed)*s.Out.FlyTime +
		verticalPower(loaded, v.LandingSpeed)*s.Out.LandTime +
		hoverPower(frameKg)*s.ServiceTime +
		verticalPower(frameKg, v.TakeoffSpeed)*s.Back.TakeoffTime +
		levelPower(frameKg, v.CruiseSpeed)*s.Back.FlyTime +
		verticalPower(frameKg, v.LandingSpeed)*s.Back.LandTime

	left := v.BatteryPower - used
	if left < 0 {
		return Infeasible
	}
	return s.minTime() + left/hoverPower(frameKg)
}
