package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/platform/metrics"
	"sidekick-route-service/internal/platform/obs"
	"sidekick-route-service/internal/ports"
)

// Caps on the inner loops of one threshold; both are far above what the
// moves need on real instances.
const (
	maxRoundsPerThreshold = 500
	maxShiftRounds        = 100
)

// PlanStats summarizes one planner run.
type PlanStats struct {
	Thresholds    int
	ToursExplored int
	TimingRuns    int
	Improvements  int
	Elapsed       time.Duration
	// True when the time budget ran out before the thresholds did.
	BudgetExpired bool
}

type PlanResult struct {
	Solution domain.Solution
	Stats    PlanStats
	// Incumbent makespans in the order they were recorded.
	History []float64
}

// Planner runs the three-phase heuristic on one instance. A Planner is
// single-use and not safe for concurrent use.
type Planner struct {
	in     *Instance
	solver ports.TourSolver
	timer  Timer
	events ports.EventPublisher

	runID     string
	seen      *domain.SeenTours
	best      float64
	incumbent *domain.Solution
	history   []float64
	stats     PlanStats
}

// NewPlanner wires the planner. events may be nil.
func NewPlanner(in *Instance, solver ports.TourSolver, events ports.EventPublisher) *Planner {
	return &Planner{in: in, solver: solver, timer: in, events: events}
}

// WithTimer replaces the list scheduler used to time candidate plans.
func (p *Planner) WithTimer(t Timer) *Planner {
	p.timer = t
	return p
}

// LowerTruckLimit is the smallest number of truck customers worth trying:
// ceil((c - |V|) / (1 + |V|)), never below zero.
func (in *Instance) LowerTruckLimit() int {
	c, v := in.NumCustomers(), in.NumDrones()
	ltl := int(math.Ceil(float64(c-v) / float64(1+v)))
	return max(ltl, 0)
}

// Plan searches thresholds from the lower truck limit up to every customer
// on the truck and returns the best schedule found. When budget is positive
// the search stops once it elapses and the incumbent is returned. It fails
// with domain.ErrNoFeasibleSolution when nothing feasible was found.
func (p *Planner) Plan(ctx context.Context, runID string, budget time.Duration) (res PlanResult, err error) {
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "plan")(&err)

	start := time.Now()
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	p.runID = runID
	p.seen = domain.NewSeenTours()
	p.best = math.Inf(1)
	part := NewPartitioner(p.in, p.solver, p.seen)

	for ltl := p.in.LowerTruckLimit(); ltl <= p.in.NumCustomers(); ltl++ {
		if ctx.Err() != nil {
			break
		}
		p.stats.Thresholds++
		p.publish(ctx, domain.EventThresholdStarted, ltl)
		log.Printf("run_id=%s op=threshold ltl=%d best=%.1f", runID, ltl, p.best)

		phaseStart := time.Now()
		pt, err := part.Partition(ctx, ltl, true, p.best)
		observe("partition", phaseStart)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, domain.ErrTourInfeasible) {
				log.Printf("run_id=%s op=threshold ltl=%d skipped err=%v", runID, ltl, err)
				continue
			}
			return PlanResult{}, fmt.Errorf("plan: threshold %d: %w", ltl, err)
		}
		if !pt.Found || pt.EstimatedCost >= p.best {
			continue
		}

		if err := p.searchThreshold(ctx, ltl, pt.Plan); err != nil {
			if ctx.Err() != nil {
				break
			}
			return PlanResult{}, fmt.Errorf("plan: threshold %d: %w", ltl, err)
		}
	}

	p.stats.ToursExplored = p.seen.Len()
	p.stats.Elapsed = time.Since(start)
	p.stats.BudgetExpired = errors.Is(ctx.Err(), context.DeadlineExceeded)
	metrics.ToursExplored.Add(float64(p.stats.ToursExplored))
	p.publish(context.WithoutCancel(ctx), domain.EventRunFinished, 0)

	if p.incumbent == nil {
		if cause := ctx.Err(); cause != nil {
			return PlanResult{Stats: p.stats}, fmt.Errorf("plan: %w: %w", domain.ErrNoFeasibleSolution, cause)
		}
		return PlanResult{Stats: p.stats}, fmt.Errorf("plan: %w", domain.ErrNoFeasibleSolution)
	}
	return PlanResult{Solution: *p.incumbent, Stats: p.stats, History: p.history}, nil
}

// searchThreshold alternates sortie assignment, timing and the improvement
// moves on one partition until none of them makes progress.
func (p *Planner) searchThreshold(ctx context.Context, ltl int, plan domain.TruckPlan) error {
	in := p.in
	tryingImprovement := false

	for range maxRoundsPerThreshold {
		if ctx.Err() != nil {
			return nil
		}

		phaseStart := time.Now()
		asg, err := in.AssignSorties(plan, p.seen)
		observe("assign", phaseStart)
		if err != nil {
			return err
		}
		if in.assignmentBound(plan, asg) > p.best {
			return nil
		}

		if asg.Failed() {
			if tryingImprovement || asg.Relocation == nil {
				return nil
			}
			r := asg.Relocation
			next, err := in.InsertTruckCustomer(plan.Tour, r.Customer, r.From, r.To)
			if err != nil {
				return err
			}
			if !p.seen.Add(next.Tour) {
				return nil
			}
			plan = next
			continue
		}

		timing, ok := p.runTiming(ctx, plan.Tour, asg.Sorties)
		if !ok {
			return nil
		}
		p.record(ctx, ltl, plan.Tour, timing)

		if mv, ok := in.ImproveMakespan(plan.Tour, asg.Sorties, p.seen); ok {
			next, err := in.PlanTruckAlone(mv.Tour)
			if err != nil {
				return err
			}
			p.seen.Add(mv.Tour)
			p.stats.Improvements++
			plan = next
			tryingImprovement = true
			continue
		}

		sorties := timing.Committed
		for range maxShiftRounds {
			next, shifted := in.ShiftRecoveries(plan.Tour, sorties, timing)
			if !shifted {
				break
			}
			retimed, ok := p.runTiming(ctx, plan.Tour, next)
			if !ok {
				break
			}
			sorties, timing = next, retimed
			p.stats.Improvements++
			p.record(ctx, ltl, plan.Tour, timing)
		}
		return nil
	}
	return nil
}

// assignmentBound is the truck-alone cost plus the cheapest relocation
// detour and the overhead of every sortie, ignoring any waiting.
func (in *Instance) assignmentBound(plan domain.TruckPlan, asg Assignment) float64 {
	bound := plan.Objective + asg.InsertCost
	for _, s := range asg.Sorties.All() {
		if s.Launch != in.Depot {
			bound += in.LaunchTime(s.Drone)
		}
		bound += in.RecoveryTime(s.Drone)
	}
	return bound
}

func (p *Planner) runTiming(ctx context.Context, tour domain.Tour, sorties *domain.SortieSet) (TimingResult, bool) {
	start := time.Now()
	res, err := p.timer.Time(ctx, tour, sorties, TimingFixed)
	observe("timing", start)
	p.stats.TimingRuns++

	switch {
	case err == nil:
		metrics.TimingRuns.WithLabelValues("feasible").Inc()
		return res, true
	case errors.Is(err, domain.ErrTimingUnknown):
		metrics.TimingRuns.WithLabelValues("unknown").Inc()
	default:
		metrics.TimingRuns.WithLabelValues("infeasible").Inc()
	}
	return TimingResult{}, false
}

// record keeps timing as the incumbent when it beats the best makespan.
func (p *Planner) record(ctx context.Context, ltl int, tour domain.Tour, timing TimingResult) {
	if timing.Makespan >= p.best {
		return
	}
	p.best = timing.Makespan
	p.incumbent = &domain.Solution{
		Objective:      timing.Makespan,
		Tour:           tour.Clone(),
		Sorties:        timing.Committed.All(),
		TruckCustomers: tour.Customers(),
		DroneCustomers: timing.Committed.Customers(),
		Schedule:       timing.Schedule,
	}
	p.history = append(p.history, timing.Makespan)
	metrics.IncumbentMakespan.Set(timing.Makespan)
	log.Printf("run_id=%s op=incumbent ltl=%d makespan=%.1f truck=%d drone=%d",
		p.runID, ltl, timing.Makespan, len(p.incumbent.TruckCustomers), len(p.incumbent.DroneCustomers))
	p.publish(ctx, domain.EventIncumbentImproved, ltl)
}

func (p *Planner) publish(ctx context.Context, kind domain.PlanEventKind, ltl int) {
	if p.events == nil {
		return
	}
	ev := domain.PlanEvent{RunID: p.runID, Kind: kind, Threshold: ltl, At: time.Now().UTC()}
	if !math.IsInf(p.best, 1) {
		ev.Makespan = p.best
	}
	if err := p.events.Publish(ctx, ev); err != nil {
		log.Printf("run_id=%s op=publish kind=%s err=%v", p.runID, kind, err)
	}
}

func observe(phase string, start time.Time) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
