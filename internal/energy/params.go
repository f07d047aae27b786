package energy

import (
	"fmt"
	"strconv"
	"strings"

	"sidekick-route-service/internal/domain"
)

type Model int

const (
	ModelNonlinear Model = iota + 1
	ModelLinear
	ModelFixed
	ModelUnlimited
	ModelDistanceCutoff
)

func (m Model) String() string {
	switch m {
	case ModelNonlinear:
		return "nonlinear"
	case ModelLinear:
		return "linear"
	case ModelFixed:
		return "fixed"
	case ModelUnlimited:
		return "unlimited"
	case ModelDistanceCutoff:
		return "distance"
	default:
		return "model(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseModel accepts a model name or its numeric index.
func ParseModel(s string) (Model, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := ModelNonlinear; m <= ModelDistanceCutoff; m++ {
		if s == m.String() || s == strconv.Itoa(int(m)) {
			return m, nil
		}
	}
	return 0, &domain.ConfigurationError{Op: "parse energy model", Msg: fmt.Sprintf("unknown model %q", s)}
}

// LinearCoefficients calibrate the linear model for one flight-range class.
// Powers are watts; D and DP are per pound of payload per m/s.
// A non-zero CruiseSpeed restricts the coefficients to drones cruising at
// that speed.
type LinearCoefficients struct {
	D           float64 `yaml:"d"`
	E           float64 `yaml:"e"`
	DP          float64 `yaml:"dp"`
	EP          float64 `yaml:"ep"`
	F           float64 `yaml:"f"`
	G           float64 `yaml:"g"`
	CruiseSpeed float64 `yaml:"cruise_speed"`
}

// FixedDuration maps a battery capacity (joules) to a flat endurance.
type FixedDuration struct {
	BatteryJoules float64 `yaml:"battery_joules"`
	Seconds       float64 `yaml:"seconds"`
}

type Params struct {
	Model  Model                         `yaml:"-"`
	Linear map[string]LinearCoefficients `yaml:"linear"`
	Fixed  []FixedDuration               `yaml:"fixed"`
	// Straight-line launch-serve-recover cutoff per range class, in miles.
	CutoffMiles map[string]float64 `yaml:"cutoff_miles"`
}

// CalibratedCruiseSpeed is the cruise speed (m/s, 70 mph) the default
// linear coefficients were fitted for.
const CalibratedCruiseSpeed = 31.2928

func DefaultParams() Params {
	return Params{
		Model: ModelLinear,
		Linear: map[string]LinearCoefficients{
			domain.RangeLow:  {D: 5.5, E: 11, DP: 11, EP: 22, F: 200, G: 400, CruiseSpeed: CalibratedCruiseSpeed},
			domain.RangeHigh: {D: 5.5, E: 12, DP: 11, EP: 24, F: 225, G: 450, CruiseSpeed: CalibratedCruiseSpeed},
		},
		Fixed: []FixedDuration{
			{BatteryJoules: 250000, Seconds: 900},
			{BatteryJoules: 500000, Seconds: 1800},
			{BatteryJoules: 1000000, Seconds: 3600},
		},
		CutoffMiles: map[string]float64{
			domain.RangeLow:  6,
			domain.RangeHigh: 12,
		},
	}
}
