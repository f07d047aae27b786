package services

import (
	"context"
	"fmt"
	"math"
	"slices"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/ports"
)

// Rounds of truck/drone moves when the first tour is built.
const initialBuildRounds = 20

// Partition is the split of customers between truck and drones for one
// threshold, with the truck tour and its truck-alone timing.
type Partition struct {
	// Found is false when no tour distinct from every seen tour exists.
	Found          bool
	Tour           domain.Tour
	TruckCustomers []int
	DroneCustomers []int
	Plan           domain.TruckPlan
	// Truck-alone cost plus launch and recovery overhead of drone customers.
	EstimatedCost float64
}

// Partitioner builds and repairs truck tours across thresholds. The first
// call runs the initial build; later calls resume from the repaired tour of
// the previous call.
type Partitioner struct {
	in     *Instance
	solver ports.TourSolver
	seen   *domain.SeenTours

	base domain.Tour
}

func NewPartitioner(in *Instance, solver ports.TourSolver, seen *domain.SeenTours) *Partitioner {
	return &Partitioner{in: in, solver: solver, seen: seen}
}

// overhead is the launch plus recovery time of the smallest-id drone.
func (in *Instance) overhead() float64 {
	d, ok := in.minDrone()
	if !ok {
		return 0
	}
	return d.LaunchTime + d.RecoveryTime
}

// EstimatedCost is the truck-alone cost of t plus one launch and one
// recovery for every customer left off the tour.
func (in *Instance) EstimatedCost(t domain.Tour) float64 {
	return in.TourCost(t) + float64(len(in.droneCustomers(t)))*in.overhead()
}

func (p *Partitioner) solveTour(ctx context.Context, customers []int) (domain.Tour, error) {
	customers = slices.Clone(customers)
	slices.Sort(customers)
	customers = slices.Compact(customers)
	t, _, err := p.solver.Solve(ctx, p.in.Depot, p.in.DepotReturn, customers, p.in.Tau)
	if err != nil {
		return nil, fmt.Errorf("partition: solve tour over %d customers: %w", len(customers), err)
	}
	if err := t.Validate(p.in.Depot, p.in.DepotReturn, customers); err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	return t, nil
}

// truckMoves lists drone customers that are cheaper to drive to on some leg.
func (p *Partitioner) truckMoves(t domain.Tour) []int {
	in := p.in
	var out []int
	for _, j := range in.droneCustomers(t) {
		for q := 0; q+1 < len(t); q++ {
			i, k := t[q], t[q+1]
			detour := in.tau[i][j] + in.tau[j][k] + in.Sigma(j) - in.tau[i][k]
			if in.overhead()-detour > 0 {
				out = append(out, j)
				break
			}
		}
	}
	return out
}

// droneMoves lists truck customers that are cheaper to fly to from their
// neighbours on the tour.
func (p *Partitioner) droneMoves(t domain.Tour, truckOnly map[int]bool) []int {
	in := p.in
	d, ok := in.minDrone()
	if !ok {
		return nil
	}
	var out []int
	for q := 0; q+2 < len(t); q++ {
		i, j, k := t[q], t[q+1], t[q+2]
		if truckOnly[j] || !in.Admissible(d.ID, i, j, k) {
			continue
		}
		saving := in.Sigma(j) + in.tau[i][j] + in.tau[j][k] - (in.overhead() + in.tau[i][k])
		if saving > 0 && !slices.Contains(out, j) {
			out = append(out, j)
		}
	}
	return out
}

// initialTour starts from the customers no drone can serve and shifts
// customers between truck and drones while that lowers estimated cost.
func (p *Partitioner) initialTour(ctx context.Context) (domain.Tour, error) {
	in := p.in
	truckOnly := make(map[int]bool)
	var must []int
	for _, j := range in.Customers {
		if !in.DroneEligible(j) {
			truckOnly[j] = true
			must = append(must, j)
		}
	}

	tour, err := p.solveTour(ctx, must)
	if err != nil {
		return nil, err
	}
	best := tour
	bestCost := in.EstimatedCost(tour)

	for range initialBuildRounds {
		more := p.truckMoves(tour)
		if len(more) > 0 {
			if tour, err = p.solveTour(ctx, append(tour.Customers(), more...)); err != nil {
				return nil, err
			}
			if c := in.EstimatedCost(tour); c < bestCost {
				best, bestCost = tour, c
			}
		}

		fewer := p.droneMoves(tour, truckOnly)
		if len(fewer) > 0 {
			keep := slices.DeleteFunc(tour.Customers(), func(j int) bool { return slices.Contains(fewer, j) })
			if tour, err = p.solveTour(ctx, keep); err != nil {
				return nil, err
			}
			if c := in.EstimatedCost(tour); c < bestCost {
				best, bestCost = tour, c
			}
		}

		if len(more) == 0 && len(fewer) == 0 {
			break
		}
	}
	return best, nil
}

type insertion struct {
	customer int
	pos      int
	value    float64
}

// repair inserts drone customers into the tour until every remaining drone
// customer can be launched and the truck serves at least ltl customers.
func (p *Partitioner) repair(ctx context.Context, tour domain.Tour, ltl int) (domain.Tour, error) {
	in := p.in
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		droners := in.droneCustomers(tour)
		reach := in.CheckReachability(tour, droners)
		short := len(tour)-2 < ltl
		if reach.Feasible && !short {
			return tour, nil
		}
		failed := reach.Blocked()

		var cheapest, bestRatio *insertion
		for _, j := range droners {
			for q := 0; q+1 < len(tour); q++ {
				i, k := tour[q], tour[q+1]
				cost := in.tau[i][j] + in.tau[j][k] + in.Sigma(j) - in.tau[i][k] - in.overhead()
				if cheapest == nil || cost < cheapest.value {
					cheapest = &insertion{customer: j, pos: q + 1, value: cost}
				}

				support := 0
				for _, l := range failed {
					if l == j || in.ServesOnLeg(l, i, j) || in.ServesOnLeg(l, j, k) {
						support++
					}
				}
				if support == 0 {
					continue
				}
				ratio := cost / float64(support)
				if cost < 0 {
					ratio = cost * float64(support)
				}
				if bestRatio == nil || ratio < bestRatio.value {
					bestRatio = &insertion{customer: j, pos: q + 1, value: ratio}
				}
			}
		}

		var err error
		switch {
		case short && len(failed) == 0:
			if cheapest == nil {
				return nil, fmt.Errorf("partition: no customer left to reach threshold %d: %w", ltl, domain.ErrTourInfeasible)
			}
			tour, err = p.solveTour(ctx, append(tour.Customers(), cheapest.customer))
		case bestRatio == nil:
			return nil, fmt.Errorf("partition: customers %v cannot be made reachable: %w", failed, domain.ErrTourInfeasible)
		case !short:
			tour = tour.InsertAt(bestRatio.pos, bestRatio.customer)
		default:
			tour, err = p.solveTour(ctx, append(tour.Customers(), bestRatio.customer))
		}
		if err != nil {
			return nil, err
		}
	}
}

// Partition produces a tour for threshold ltl. When requireUnique is set
// and the repaired tour was already examined, it considers truck/drone
// swaps, two-node reversals and the full reversal, and accepts the cheapest
// new tour that keeps every drone customer reachable.
// A reversal only counts as found when it beats the incumbent makespan.
func (p *Partitioner) Partition(ctx context.Context, ltl int, requireUnique bool, incumbent float64) (Partition, error) {
	if p.base == nil {
		tour, err := p.initialTour(ctx)
		if err != nil {
			return Partition{}, err
		}
		p.base = tour
	}

	tour, err := p.repair(ctx, p.base.Clone(), ltl)
	if err != nil {
		return Partition{}, err
	}
	p.base = tour.Clone()

	out, err := p.describe(tour)
	if err != nil {
		return Partition{}, err
	}

	if p.seen.Add(tour) {
		out.Found = true
		return out, nil
	}
	if !requireUnique {
		return out, nil
	}

	next, swapped, ok := p.perturb(tour, out.Plan.Objective, ltl)
	if !ok {
		return out, nil
	}
	p.seen.Add(next)
	if out, err = p.describe(next); err != nil {
		return Partition{}, err
	}
	out.Found = swapped || out.Plan.Objective < incumbent
	return out, nil
}

func (p *Partitioner) describe(t domain.Tour) (Partition, error) {
	plan, err := p.in.PlanTruckAlone(t)
	if err != nil {
		return Partition{}, fmt.Errorf("partition: %w", err)
	}
	return Partition{
		Tour:           t.Clone(),
		TruckCustomers: t.Customers(),
		DroneCustomers: p.in.droneCustomers(t),
		Plan:           plan,
		EstimatedCost:  p.in.EstimatedCost(t),
	}, nil
}

// perturb looks for an unseen neighbour of t. swapped reports whether the
// winning move exchanged a truck and a drone customer.
func (p *Partitioner) perturb(t domain.Tour, objective float64, ltl int) (domain.Tour, bool, bool) {
	in := p.in
	acceptable := func(cand domain.Tour) bool {
		if len(cand)-2 < ltl {
			return false
		}
		return in.CheckReachability(cand, in.droneCustomers(cand)).Feasible
	}

	minCost := math.Inf(1)
	var best domain.Tour
	swapped := false

	droners := in.droneCustomers(t)
	for q := 0; q+3 < len(t); q++ {
		i, j, k := t[q], t[q+1], t[q+2]
		if !in.AnyDroneCarries(j) {
			continue
		}
		for _, l := range droners {
			cand := t.Clone()
			cand[q+1] = l
			if p.seen.Contains(cand) {
				continue
			}
			cost := in.tau[i][l] + in.tau[l][k] - (in.tau[i][j] + in.tau[j][k])
			if cost < minCost && acceptable(cand) {
				minCost, best, swapped = cost, cand, true
			}
		}
	}

	for q := 1; q+2 < len(t); q++ {
		i, j, k, l := t[q-1], t[q], t[q+1], t[q+2]
		cand := t.Clone()
		cand[q], cand[q+1] = k, j
		if p.seen.Contains(cand) {
			continue
		}
		cost := in.tau[i][k] + in.tau[k][j] + in.tau[j][l] - in.tau[i][j] - in.tau[j][k] - in.tau[k][l]
		if cost < minCost && acceptable(cand) {
			minCost, best, swapped = cost, cand, false
		}
	}

	rev := t.Clone()
	slices.Reverse(rev)
	rev[0], rev[len(rev)-1] = in.Depot, in.DepotReturn
	if !p.seen.Contains(rev) {
		cost := in.TourCost(rev) - objective
		if cost < minCost && acceptable(rev) {
			best, swapped = rev, false
		}
	}

	return best, swapped, best != nil
}
