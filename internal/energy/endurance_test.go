package energy

import (
	"math"
	"testing"

	"sidekick-route-service/internal/domain"
)

func testSortie(battery float64) Sortie {
	return Sortie{
		Vehicle: domain.Vehicle{
			ID:           2,
			Kind:         domain.VehicleDrone,
			TakeoffSpeed: 10,
			CruiseSpeed:  CalibratedCruiseSpeed,
			LandingSpeed: 5,
			BatteryPower: battery,
			FlightRange:  domain.RangeLow,
		},
		Out:         domain.TravelLeg{TakeoffTime: 5, FlyTime: 50, LandTime: 10},
		Back:        domain.TravelLeg{TakeoffTime: 5, FlyTime: 50, LandTime: 10},
		ParcelLbs:   2,
		ServiceTime: 30,
	}
}

func newCalc(t *testing.T, m Model) *Calculator {
	t.Helper()
	p := DefaultParams()
	p.Model = m
	c, err := NewCalculator(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestLinearEnduranceBoundary(t *testing.T) {
	c := newCalc(t, ModelLinear)

	// testSortie needs 12600 J for takeoff, landing and service plus
	// 1650 J per m/s of cruise speed, over a minimum of 160 s.
	required := 12600 + 1650*CalibratedCruiseSpeed
	cases := []struct {
		battery float64
		want    float64
	}{
		{battery: required + 1e-6, want: 160},
		{battery: required - 1, want: Infeasible},
		{battery: required + 4000, want: 170},
	}

	for _, tc := range cases {
		got, err := c.Endurance(testSortie(tc.battery))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("battery %v: got %v, want %v", tc.battery, got, tc.want)
		}
	}
}

func TestDefaultLinearRejectsUncalibratedSpeed(t *testing.T) {
	c := newCalc(t, ModelLinear)
	s := testSortie(500000)
	s.Vehicle.CruiseSpeed = 20

	if err := c.Validate(s.Vehicle); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error from validate, got %v", err)
	}
	if _, err := c.Endurance(s); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	s.Vehicle.FlightRange = domain.RangeHigh
	if err := c.Validate(s.Vehicle); !domain.IsConfigurationError(err) {
		t.Fatalf("high range: expected configuration error, got %v", err)
	}
}

func TestLinearUnknownRange(t *testing.T) {
	c := newCalc(t, ModelLinear)
	s := testSortie(500000)
	s.Vehicle.FlightRange = "medium"

	if _, err := c.Endurance(s); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := c.Validate(s.Vehicle); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error from validate, got %v", err)
	}
}

func TestLinearCalibratedSpeed(t *testing.T) {
	p := DefaultParams()
	low := p.Linear[domain.RangeLow]
	low.CruiseSpeed = 25
	p.Linear[domain.RangeLow] = low

	c, err := NewCalculator(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := testSortie(500000)
	if err := c.Validate(s.Vehicle); !domain.IsConfigurationError(err) {
		t.Fatalf("expected speed mismatch, got %v", err)
	}
	s.Vehicle.CruiseSpeed = 25
	if err := c.Validate(s.Vehicle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFixedEndurance(t *testing.T) {
	c := newCalc(t, ModelFixed)

	got, err := c.Endurance(testSortie(500000))
	if err != nil || got != 1800 {
		t.Fatalf("got %v, %v; want 1800", got, err)
	}

	if _, err := c.Endurance(testSortie(123456)); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestUnlimitedAndCutoff(t *testing.T) {
	if got, _ := newCalc(t, ModelUnlimited).Endurance(testSortie(0)); got != OneDay {
		t.Fatalf("got %v, want %v", got, OneDay)
	}

	c := newCalc(t, ModelDistanceCutoff)
	s := testSortie(0)
	s.GroundMeters = 9000
	if got, _ := c.Endurance(s); got != OneDay {
		t.Fatalf("inside cutoff: got %v", got)
	}
	s.GroundMeters = 10000
	if got, _ := c.Endurance(s); got != Infeasible {
		t.Fatalf("beyond 6 miles: got %v", got)
	}
	s.Vehicle.FlightRange = domain.RangeHigh
	if got, _ := c.Endurance(s); got != OneDay {
		t.Fatalf("high range: got %v", got)
	}
}

func TestNonlinearEndurance(t *testing.T) {
	c := newCalc(t, ModelNonlinear)

	if got, _ := c.Endurance(testSortie(0)); got != Infeasible {
		t.Fatalf("empty battery: got %v", got)
	}

	light, _ := c.Endurance(testSortie(500000))
	heavy := testSortie(500000)
	heavy.ParcelLbs = 5
	heavier, _ := c.Endurance(heavy)

	if light <= 160 {
		t.Fatalf("expected bonus hover time, got %v", light)
	}
	if heavier >= light {
		t.Fatalf("heavier parcel should shorten endurance: %v >= %v", heavier, light)
	}
}

func TestModelSelection(t *testing.T) {
	if _, err := NewCalculator(Params{Model: 9}); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if m, err := ParseModel("2"); err != nil || m != ModelLinear {
		t.Fatalf("got %v, %v", m, err)
	}
	if m, err := ParseModel(" Fixed "); err != nil || m != ModelFixed {
		t.Fatalf("got %v, %v", m, err)
	}
	if _, err := ParseModel("solar"); !domain.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
