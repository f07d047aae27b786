package distance

import (
	"context"
	"fmt"
	"sync/atomic"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/kinematics"
	"sidekick-route-service/internal/ports"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockDistanceProvider answers from a fixed pair table. When SpeedMPS is
// set, pairs missing from the table are priced as straight-line driving at
// that speed.
type MockDistanceProvider struct {
	m        map[string]ports.DistanceResult
	SpeedMPS float64
	calls    atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockDistanceProvider{m: m}
}

// NewStraightLineProvider prices every pair as driving the great-circle
// distance at speed m/s.
func NewStraightLineProvider(speed float64) *MockDistanceProvider {
	return &MockDistanceProvider{m: map[string]ports.DistanceResult{}, SpeedMPS: speed}
}

func (p *MockDistanceProvider) GetDistance(ctx context.Context, origin, destination domain.Coordinates) (ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}
	p.calls.Add(1)
	r, ok := p.m[origin.Key()+"|"+destination.Key()]
	if ok {
		return r, nil
	}
	if p.SpeedMPS > 0 {
		d := kinematics.GroundDistance(origin, destination)
		return ports.DistanceResult{DistanceMeters: d, DurationSeconds: d / p.SpeedMPS}, nil
	}
	return ports.DistanceResult{}, fmt.Errorf("missing pair %s -> %s", origin.Key(), destination.Key())
}

// Calls is the number of GetDistance lookups served.
func (p *MockDistanceProvider) Calls() int { return int(p.calls.Load()) }
