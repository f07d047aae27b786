package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
)

// TimingMode selects how endurance conflicts are handled.
type TimingMode int

const (
	// TimingFixed treats every sortie as committed; a conflict makes the
	// schedule infeasible.
	TimingFixed TimingMode = iota
	// TimingRelaxed drops sorties that cannot meet their endurance and
	// reports them as rejected.
	TimingRelaxed
)

func (m TimingMode) String() string {
	if m == TimingRelaxed {
		return "relaxed"
	}
	return "fixed"
}

const timeEps = 1e-6

// Timer schedules a tour and its sorties. *Instance is the list scheduler;
// an exact timer can replace it through Planner.WithTimer. It lives here
// rather than in ports because its result carries the raw event times the
// improvement moves read.
type Timer interface {
	Time(ctx context.Context, tour domain.Tour, sorties *domain.SortieSet, mode TimingMode) (TimingResult, error)
}

var _ Timer = (*Instance)(nil)

// SortieTimes are the event times of one committed sortie.
type SortieTimes struct {
	LaunchStart    float64
	LaunchDone     float64
	ArriveCustomer float64
	ServeDone      float64
	// Drone back over the recovery node, ready to land.
	ArriveRecovery float64
	RecoveryStart  float64
	RecoveryDone   float64
}

// TimingResult is a feasible schedule plus the raw event times the
// improvement moves read.
type TimingResult struct {
	Makespan  float64
	Schedule  domain.Schedule
	Committed *domain.SortieSet
	// Sorties dropped in relaxed mode.
	Rejected []domain.Sortie
	// Keyed by drone customer.
	Sorties map[int]SortieTimes
	// Truck arrival and departure per tour node.
	Arrive map[int]float64
	Depart map[int]float64
	// Time the truck spends at a node beyond service, launches and
	// recoveries. Negative at the depot when the truck leaves before its
	// launches finish.
	NodeWaiting map[int]float64
}

type opKind int

const (
	opRecover opKind = iota
	opLaunch
	opService
)

type lane int

const (
	laneTruck lane = iota
	laneService
	lanePad
	laneFree
)

type nodeOp struct {
	kind  opKind
	s     domain.Sortie
	ready float64
	dur   float64
	lane  lane
	// Work the truck has to attend; it cannot leave before it ends.
	truck bool
	// Launch of a drone that lands at this node first.
	relaunch bool
	deferred bool
	held     bool

	start, end float64
	done       bool
}

type sortieFix struct {
	deferLaunch  bool
	holdRecovery bool
	// Earliest launch start, raised by the overrun each time the sortie
	// comes back too late.
	notBefore float64
	pushes    int
	overrun   float64
}

// push delays the launch by the overrun measured when it started at
// launchStart. Pushing stops once an extra delay no longer shrinks the
// overrun, which happens when the recovery moves with the launch.
func (f *sortieFix) push(launchStart, overrun float64, limit int) bool {
	if f.pushes >= limit || (f.pushes > 0 && overrun >= f.overrun-timeEps) {
		return false
	}
	f.notBefore = math.Max(f.notBefore, launchStart+overrun)
	f.overrun = overrun
	f.pushes++
	return true
}

// simulation is one pass of the list scheduler over the tour.
type simulation struct {
	arrive, depart map[int]float64
	times          map[int]SortieTimes
	ops            map[int][]*nodeOp
	// First sortie whose recovery came too late, if any, and by how much.
	violated *domain.Sortie
	overrun  float64
	freeEnd  float64
}

// Time computes the earliest schedule for a tour and its sorties.
//
// Nodes are handled in tour order. At each node the truck's service, the
// recoveries of arriving drones and the launches of departing drones are
// sequenced greedily by earliest possible start. When a drone would
// exceed its endurance, its launch is moved behind the other work at the
// launch node, then its recovery is given priority at the landing node,
// then its launch is delayed by the overrun. A truck-attended launch holds
// the truck, so the departure from the launch node moves with it and any
// idle time the truck had further down the tour absorbs the delay. If none
// of this helps the sortie is infeasible in fixed mode and rejected in
// relaxed mode.
func (in *Instance) Time(ctx context.Context, tour domain.Tour, sorties *domain.SortieSet, mode TimingMode) (TimingResult, error) {
	if err := tour.Validate(in.Depot, in.DepotReturn, tour.Customers()); err != nil {
		return TimingResult{}, fmt.Errorf("time tour: %w", err)
	}
	if sorties == nil {
		sorties = mustSortieSet()
	}
	if err := sorties.ValidateExclusive(tour); err != nil {
		return TimingResult{}, fmt.Errorf("time tour: %w", err)
	}

	active := sorties.Clone()
	maxPushes := active.Len() + 2
	fixes := make(map[int]*sortieFix, active.Len())
	for _, j := range active.Customers() {
		fixes[j] = &sortieFix{}
	}

	var rejected []domain.Sortie
	for {
		if err := ctx.Err(); err != nil {
			return TimingResult{}, fmt.Errorf("time tour %s: %w: %w", tour.Key(), domain.ErrTimingUnknown, err)
		}

		sim := in.simulate(tour, active, fixes)
		if sim.violated == nil {
			res := in.collect(tour, active, sim)
			res.Rejected = rejected
			return res, nil
		}

		bad := *sim.violated
		f := fixes[bad.Customer]
		switch {
		case !f.deferLaunch:
			f.deferLaunch = true
		case !f.holdRecovery:
			f.holdRecovery = true
		case f.push(sim.times[bad.Customer].LaunchStart, sim.overrun, maxPushes):
		case mode == TimingRelaxed:
			active.Remove(bad.Customer)
			rejected = append(rejected, bad)
		default:
			return TimingResult{}, fmt.Errorf("time tour %s: sortie %s exceeds endurance: %w", tour.Key(), bad, domain.ErrTimingInfeasible)
		}
	}
}

// needsTruck reports whether work at node n has to be attended by the truck.
func (in *Instance) needsTruck(kind opKind, n int) bool {
	switch {
	case kind == opLaunch && n == in.Depot:
		return in.Options.RequireTruckAtDepot
	case kind == opRecover && n == in.DepotReturn:
		return in.Options.RequireTruckAtDepot
	default:
		return true
	}
}

func (in *Instance) laneFor(kind opKind, n int) lane {
	switch {
	case !in.needsTruck(kind, n):
		return laneFree
	case in.Options.RequireDriver:
		return laneTruck
	case kind == opService:
		return laneService
	default:
		return lanePad
	}
}

func (in *Instance) simulate(tour domain.Tour, sorties *domain.SortieSet, fixes map[int]*sortieFix) *simulation {
	sim := &simulation{
		arrive: make(map[int]float64, len(tour)),
		depart: make(map[int]float64, len(tour)),
		times:  make(map[int]SortieTimes, sorties.Len()),
		ops:    make(map[int][]*nodeOp, len(tour)),
	}

	clock := 0.0
	for p, n := range tour {
		if p > 0 {
			clock += in.tau[tour[p-1]][n]
		}
		a := clock
		sim.arrive[n] = a

		ops := in.nodeOps(n, a, sorties, fixes, sim.times)
		runNode(ops, a)
		sim.ops[n] = ops

		d := a
		for _, op := range ops {
			if op.truck {
				d = math.Max(d, op.end)
			} else {
				sim.freeEnd = math.Max(sim.freeEnd, op.end)
			}
		}
		sim.depart[n] = d
		clock = d

		for _, op := range ops {
			switch op.kind {
			case opLaunch:
				t := sim.times[op.s.Customer]
				t.LaunchStart, t.LaunchDone = op.start, op.end
				t.ArriveCustomer = op.end + in.TauPrime(op.s.Drone, op.s.Launch, op.s.Customer)
				t.ServeDone = t.ArriveCustomer + in.SigmaPrime(op.s.Customer)
				t.ArriveRecovery = t.ServeDone + in.TauPrime(op.s.Drone, op.s.Customer, op.s.Recover)
				sim.times[op.s.Customer] = t
			case opRecover:
				t := sim.times[op.s.Customer]
				t.RecoveryStart, t.RecoveryDone = op.start, op.end
				sim.times[op.s.Customer] = t
				over := t.RecoveryStart - t.LaunchDone - in.Endurance(op.s.Drone, op.s.Launch, op.s.Customer, op.s.Recover)
				if sim.violated == nil && over > timeEps {
					s := op.s
					sim.violated, sim.overrun = &s, over
				}
			}
		}
	}
	return sim
}

// nodeOps lists the work at node n. Launch times of sorties recovered
// here are already in times since launches precede recoveries on the tour.
func (in *Instance) nodeOps(n int, arrive float64, sorties *domain.SortieSet, fixes map[int]*sortieFix, times map[int]SortieTimes) []*nodeOp {
	var ops []*nodeOp
	landing := make(map[int]bool)
	for _, s := range sorties.LandsAt(n) {
		t := times[s.Customer]
		ready := t.LaunchDone + in.SortieDuration(s.Drone, s.Launch, s.Customer, s.Recover)
		ops = append(ops, &nodeOp{
			kind:  opRecover,
			s:     s,
			ready: ready,
			dur:   in.RecoveryTime(s.Drone),
			lane:  in.laneFor(opRecover, n),
			truck: in.needsTruck(opRecover, n),
			held:  fixes[s.Customer].holdRecovery,
		})
		landing[s.Drone] = true
	}

	for _, s := range sorties.LaunchesAt(n) {
		op := &nodeOp{
			kind:     opLaunch,
			s:        s,
			dur:      in.LaunchTime(s.Drone),
			lane:     in.laneFor(opLaunch, n),
			truck:    in.needsTruck(opLaunch, n),
			relaunch: landing[s.Drone],
			deferred: fixes[s.Customer].deferLaunch,
		}
		if op.truck {
			op.ready = arrive
		}
		op.ready = math.Max(op.ready, fixes[s.Customer].notBefore)
		ops = append(ops, op)
	}

	if sigma := in.Sigma(n); sigma > 0 {
		ops = append(ops, &nodeOp{
			kind:  opService,
			ready: arrive,
			dur:   sigma,
			lane:  in.laneFor(opService, n),
			truck: true,
		})
	}
	return ops
}

// runNode sequences the work at one node. Each lane serves one operation
// at a time; ties go to recoveries, then launches, then service, then the
// lower drone id.
func runNode(ops []*nodeOp, arrive float64) {
	free := map[lane]float64{laneTruck: arrive, laneService: arrive, lanePad: arrive, laneFree: 0}

	for {
		var best *nodeOp
		bestStart := math.Inf(1)
		for _, op := range ops {
			if op.done {
				continue
			}
			ready, ok := readyAt(op, ops)
			if !ok {
				continue
			}
			start := math.Max(ready, free[op.lane])
			if !op.held && blocksHeld(op, start, ops) {
				continue
			}
			if best == nil || start < bestStart-timeEps ||
				(math.Abs(start-bestStart) <= timeEps && before(op, best)) {
				best, bestStart = op, start
			}
		}
		if best == nil {
			return
		}
		best.start = bestStart
		best.end = bestStart + best.dur
		best.done = true
		free[best.lane] = best.end
	}
}

// readyAt is the earliest start of op given the work already placed, or
// false while op still waits on other work.
func readyAt(op *nodeOp, ops []*nodeOp) (float64, bool) {
	ready := op.ready
	for _, o := range ops {
		if o == op {
			continue
		}
		if op.relaunch && o.kind == opRecover && o.s.Drone == op.s.Drone {
			if !o.done {
				return 0, false
			}
			ready = math.Max(ready, o.end)
		}
		if op.deferred && !o.done && !o.deferred && o.lane == op.lane {
			return 0, false
		}
	}
	return ready, true
}

// blocksHeld reports whether starting op at start would delay a held
// recovery pending on the same lane.
func blocksHeld(op *nodeOp, start float64, ops []*nodeOp) bool {
	for _, o := range ops {
		if o.done || !o.held || o.lane != op.lane {
			continue
		}
		if start+op.dur > o.ready+timeEps {
			return true
		}
	}
	return false
}

func before(a, b *nodeOp) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.s.Drone < b.s.Drone
}

func (in *Instance) collect(tour domain.Tour, sorties *domain.SortieSet, sim *simulation) TimingResult {
	last := tour[len(tour)-1]
	res := TimingResult{
		Makespan:    math.Max(sim.depart[last], sim.freeEnd),
		Committed:   sorties.Clone(),
		Sorties:     sim.times,
		Arrive:      sim.arrive,
		Depart:      sim.depart,
		NodeWaiting: make(map[int]float64, len(tour)),
	}

	for _, n := range tour {
		busy := in.Sigma(n)
		for _, s := range sorties.LaunchesAt(n) {
			busy += in.LaunchTime(s.Drone)
		}
		for _, s := range sorties.LandsAt(n) {
			busy += in.RecoveryTime(s.Drone)
		}
		w := sim.depart[n] - sim.arrive[n] - busy
		res.NodeWaiting[n] = w
		if n == in.Depot {
			res.Schedule.InitialIdle = math.Max(0, w)
			continue
		}
		res.Schedule.TruckWaiting += math.Max(0, w)
	}

	for _, s := range sorties.All() {
		t := sim.times[s.Customer]
		busy := in.SortieDuration(s.Drone, s.Launch, s.Customer, s.Recover) + in.LaunchTime(s.Drone) + in.RecoveryTime(s.Drone)
		res.Schedule.DroneWaiting += math.Max(0, t.RecoveryDone-sim.arrive[s.Launch]-busy)
	}

	res.Schedule.Makespan = res.Makespan
	res.Schedule.Activities = in.activities(tour, sorties, sim)
	res.Schedule.Packages = in.packages(tour, sorties, sim)
	return res
}

func (in *Instance) packages(tour domain.Tour, sorties *domain.SortieSet, sim *simulation) []domain.PackageDelivery {
	var out []domain.PackageDelivery
	for _, n := range tour {
		if !in.Nodes[n].IsCustomer() {
			continue
		}
		for _, op := range sim.ops[n] {
			if op.kind == opService {
				out = append(out, domain.PackageDelivery{
					CustomerID:  n,
					ServedBy:    domain.VehicleTruck,
					VehicleID:   in.Fleet.Truck.ID,
					Position:    in.Nodes[n].Position,
					DeliveredAt: op.end,
				})
			}
		}
	}
	for _, s := range sorties.All() {
		out = append(out, domain.PackageDelivery{
			CustomerID:  s.Customer,
			ServedBy:    domain.VehicleDrone,
			VehicleID:   s.Drone,
			Position:    in.Nodes[s.Customer].Position,
			DeliveredAt: sim.times[s.Customer].ServeDone,
		})
	}
	slices.SortFunc(out, func(a, b domain.PackageDelivery) int { return a.CustomerID - b.CustomerID })
	return out
}
