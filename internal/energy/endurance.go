// Package energy estimates how long a drone can stay on a sortie.
package energy

import (
	"fmt"
	"math"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/kinematics"
)

const (
	// Infeasible is returned when no timing can make the sortie work.
	Infeasible = -1.0
	// OneDay is the endurance of an unconstrained drone.
	OneDay = 86400.0

	speedTol = 1e-6
)

// Sortie is the energy view of <v,i,j,k>: the outbound leg i->j carries the
// parcel, the return leg j->k is empty.
type Sortie struct {
	Vehicle     domain.Vehicle
	Out         domain.TravelLeg
	Back        domain.TravelLeg
	ParcelLbs   float64
	ServiceTime float64
	// Straight-line ground distance i->j->k in meters.
	GroundMeters float64
}

func (s Sortie) minTime() float64 {
	return s.Out.TakeoffTime + s.Out.FlyTime + s.Out.LandTime + s.ServiceTime +
		s.Back.TakeoffTime + s.Back.FlyTime + s.Back.LandTime
}

type Calculator struct {
	params Params
}

func NewCalculator(p Params) (*Calculator, error) {
	if p.Model < ModelNonlinear || p.Model > ModelDistanceCutoff {
		return nil, &domain.ConfigurationError{Op: "new energy calculator", Msg: fmt.Sprintf("unknown model index %d", p.Model)}
	}
	return &Calculator{params: p}, nil
}

func (c *Calculator) Model() Model { return c.params.Model }

// Validate checks that the selected model can price sorties for v.
func (c *Calculator) Validate(v domain.Vehicle) error {
	switch c.params.Model {
	case ModelLinear:
		_, err := c.linear(v)
		return err
	case ModelFixed:
		_, err := c.fixed(v)
		return err
	case ModelDistanceCutoff:
		_, err := c.cutoff(v)
		return err
	}
	return nil
}

// Endurance returns the maximum sortie duration in seconds, or Infeasible.
// Errors are always configuration errors.
func (c *Calculator) Endurance(s Sortie) (float64, error) {
	switch c.params.Model {
	case ModelNonlinear:
		return nonlinearEndurance(s), nil
	case ModelLinear:
		k, err := c.linear(s.Vehicle)
		if err != nil {
			return 0, err
		}
		return linearEndurance(k, s), nil
	case ModelFixed:
		return c.fixed(s.Vehicle)
	case ModelUnlimited:
		return OneDay, nil
	case ModelDistanceCutoff:
		limit, err := c.cutoff(s.Vehicle)
		if err != nil {
			return 0, err
		}
		if s.GroundMeters > limit {
			return Infeasible, nil
		}
		return OneDay, nil
	}
	return 0, &domain.ConfigurationError{Op: "endurance", Msg: fmt.Sprintf("unknown model index %d", c.params.Model)}
}

func (c *Calculator) linear(v domain.Vehicle) (LinearCoefficients, error) {
	k, ok := c.params.Linear[v.FlightRange]
	if !ok {
		return k, &domain.ConfigurationError{Op: "linear endurance", Msg: fmt.Sprintf("vehicle %d has unknown flight range %q", v.ID, v.FlightRange)}
	}
	if k.CruiseSpeed > 0 && math.Abs(k.CruiseSpeed-v.CruiseSpeed) > speedTol {
		return k, &domain.ConfigurationError{
			Op:  "linear endurance",
			Msg: fmt.Sprintf("vehicle %d cruises at %g m/s, %s range is calibrated for %g m/s", v.ID, v.CruiseSpeed, v.FlightRange, k.CruiseSpeed),
		}
	}
	return k, nil
}

func (c *Calculator) fixed(v domain.Vehicle) (float64, error) {
	for _, f := range c.params.Fixed {
		if math.Abs(f.BatteryJoules-v.BatteryPower) < 0.5 {
			return f.Seconds, nil
		}
	}
	return 0, &domain.ConfigurationError{Op: "fixed endurance", Msg: fmt.Sprintf("vehicle %d has unrecognized battery capacity %g J", v.ID, v.BatteryPower)}
}

func (c *Calculator) cutoff(v domain.Vehicle) (float64, error) {
	miles, ok := c.params.CutoffMiles[v.FlightRange]
	if !ok {
		return 0, &domain.ConfigurationError{Op: "distance cutoff", Msg: fmt.Sprintf("vehicle %d has unknown flight range %q", v.ID, v.FlightRange)}
	}
	return miles * kinematics.MetersPerMile, nil
}

func linearEndurance(k LinearCoefficients, s Sortie) float64 {
	p := s.Vehicle.TakeoffSpeed
	q := s.Vehicle.CruiseSpeed
	r := s.Vehicle.LandingSpeed
	m := s.ParcelLbs

	required := (s.Out.TakeoffTime*p+s.Out.LandTime*r)*(k.DP*m+k.EP) +
		s.Out.FlyTime*q*(k.D*m+k.E) +
		s.ServiceTime*k.F +
		(s.Back.TakeoffTime*p+s.Back.LandTime*r)*k.EP +
		s.Back.FlyTime*q*k.E

	left := s.Vehicle.BatteryPower - required
	if left < 0 {
		return Infeasible
	}
	return s.minTime() + left/k.G
}
