package services

import (
	"context"
	"math"
	"slices"
	"testing"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/kinematics"
	"sidekick-route-service/internal/ports"
)

const (
	truckID    = 1
	truckSpeed = 10.0
)

var depotPos = domain.Coordinates{Lat: 40.0, Lon: -75.0}

// at places a point dLat, dLon hundredths of a degree from the depot.
func at(dLat, dLon float64) domain.Coordinates {
	return domain.Coordinates{Lat: depotPos.Lat + dLat/100, Lon: depotPos.Lon + dLon/100}
}

func testNodes(customers ...domain.Coordinates) []domain.Node {
	nodes := []domain.Node{{ID: 0, Kind: domain.NodeDepot, Position: depotPos}}
	for i, c := range customers {
		nodes = append(nodes, domain.Node{
			ID:               i + 1,
			Kind:             domain.NodeCustomer,
			Position:         c,
			ParcelWeightLbs:  2,
			TruckServiceTime: 60,
			DroneServiceTime: 60,
		})
	}
	return nodes
}

func testDrone(id int) domain.Vehicle {
	return domain.Vehicle{
		ID:           id,
		Kind:         domain.VehicleDrone,
		TakeoffSpeed: 5,
		CruiseSpeed:  20,
		LandingSpeed: 3,
		YawRateDeg:   360,
		CruiseAlt:    50,
		CapacityLbs:  5,
		LaunchTime:   60,
		RecoveryTime: 30,
		ServiceTime:  60,
		BatteryPower: 500000,
		FlightRange:  domain.RangeLow,
	}
}

func testFleet(t *testing.T, drones int) *domain.Fleet {
	t.Helper()
	vehicles := []domain.Vehicle{{ID: truckID, Kind: domain.VehicleTruck}}
	for d := range drones {
		vehicles = append(vehicles, testDrone(truckID+1+d))
	}
	f, _, err := domain.NewFleet(vehicles, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

// straightMatrix drives the great-circle distance at truckSpeed.
func straightMatrix(nodes []domain.Node) domain.TruckMatrix {
	m := make(domain.TruckMatrix)
	for _, a := range nodes {
		for _, b := range nodes {
			if a.ID == b.ID {
				continue
			}
			d := kinematics.GroundDistance(a.Position, b.Position)
			m.Set(a.ID, b.ID, domain.NewTruckLeg(d/truckSpeed, d))
		}
	}
	return m
}

func calcFor(t *testing.T, model energy.Model) *energy.Calculator {
	t.Helper()
	p := energy.DefaultParams()
	p.Model = model
	c, err := energy.NewCalculator(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func buildWith(t *testing.T, nodes []domain.Node, drones int, calc *energy.Calculator) *Instance {
	t.Helper()
	in, err := BuildInstance(nodes, testFleet(t, drones), straightMatrix(nodes), calc, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return in
}

// build uses unlimited endurance so every sortie shape is admissible.
func build(t *testing.T, nodes []domain.Node, drones int) *Instance {
	t.Helper()
	return buildWith(t, nodes, drones, calcFor(t, energy.ModelUnlimited))
}

func sorties(t *testing.T, xs ...domain.Sortie) *domain.SortieSet {
	t.Helper()
	s, err := domain.NewSortieSet(xs...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func near(a, b float64) bool { return math.Abs(a-b) <= 1e-6 }

// bruteSolver enumerates every customer order. Enough for the small
// instances used here.
type bruteSolver struct{}

func (bruteSolver) Solve(ctx context.Context, depot, depotReturn int, customers []int, cost ports.CostFunc) (domain.Tour, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	best := math.Inf(1)
	var bestOrder []int
	order := slices.Clone(customers)

	var walk func(k int)
	walk = func(k int) {
		if k == len(order) {
			total, prev := 0.0, depot
			for _, j := range order {
				total += cost(prev, j)
				prev = j
			}
			total += cost(prev, depotReturn)
			if total < best {
				best, bestOrder = total, slices.Clone(order)
			}
			return
		}
		for i := k; i < len(order); i++ {
			order[k], order[i] = order[i], order[k]
			walk(k + 1)
			order[k], order[i] = order[i], order[k]
		}
	}
	walk(0)
	return domain.NewTour(depot, depotReturn, bestOrder...), best, nil
}

type recordingPublisher struct {
	events []domain.PlanEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev domain.PlanEvent) error {
	r.events = append(r.events, ev)
	return nil
}
