package services

import (
	"context"
	"testing"

	"sidekick-route-service/internal/domain"
)

func TestSnapshotFollowsTruckAndDrone(t *testing.T) {
	in := build(t, testNodes(at(1, 1), at(0, 0.2)), 1)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 2)
	res, err := in.Time(context.Background(), tour, sorties(t, domain.Sortie{Drone: 2, Launch: 0, Customer: 1, Recover: 2}), TimingFixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched := res.Schedule

	var cruise domain.Activity
	for _, a := range sched.ActivitiesFor(2) {
		if a.Status == domain.TravelUAVPackage {
			cruise = a
		}
	}
	if cruise.EndTime <= cruise.StartTime {
		t.Fatalf("no outbound cruise in %v", sched.ActivitiesFor(2))
	}

	mid := (cruise.StartTime + cruise.EndTime) / 2
	states := in.Snapshot(sched, mid)
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2", len(states))
	}
	drone := states[1]
	if drone.VehicleID != 2 || drone.Node != -1 || drone.RidingOn != 0 {
		t.Fatalf("unexpected drone state %+v", drone)
	}
	lo, hi := depotPos.Lat, in.Nodes[1].Position.Lat
	if drone.Position.Lat <= lo || drone.Position.Lat >= hi {
		t.Fatalf("drone latitude %v not between %v and %v", drone.Position.Lat, lo, hi)
	}

	end := in.Snapshot(sched, sched.Makespan+10)
	if end[0].Node != in.DepotReturn || end[0].Position != depotPos {
		t.Fatalf("truck should be back at the depot, got %+v", end[0])
	}
	if end[1].RidingOn != truckID || end[1].Position != end[0].Position {
		t.Fatalf("drone should ride the truck after recovery, got %+v", end[1])
	}
}

func TestSnapshotTruckBetweenStops(t *testing.T) {
	in := build(t, testNodes(at(0, 1), at(0, 2)), 0)
	tour := domain.NewTour(in.Depot, in.DepotReturn, 1, 2)
	res, err := in.Time(context.Background(), tour, nil, TimingFixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := in.Snapshot(res.Schedule, -1)[0]
	if start.Node != in.Depot || start.Position != depotPos {
		t.Fatalf("truck should start at the depot, got %+v", start)
	}

	half := in.Tau(0, 1) / 2
	st := in.Snapshot(res.Schedule, half)[0]
	if st.Node != -1 {
		t.Fatalf("truck should be between nodes, got %+v", st)
	}
	if st.Position.Lon <= depotPos.Lon || st.Position.Lon >= in.Nodes[1].Position.Lon {
		t.Fatalf("longitude %v not between depot and customer 1", st.Position.Lon)
	}

	serving := in.Snapshot(res.Schedule, in.Tau(0, 1)+1)[0]
	if serving.Node != 1 || serving.Status != domain.StationaryTruckEmpty {
		t.Fatalf("truck should be serving customer 1, got %+v", serving)
	}
}
