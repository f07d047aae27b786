package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/platform/obs"
	"sidekick-route-service/internal/ports"
)

// RunRequest is one planning job.
type RunRequest struct {
	ProblemName string
	Nodes       []domain.Node
	Fleet       *domain.Fleet
	// Fetched through the distance provider when nil.
	Matrix  domain.TruckMatrix
	Options Options
	Energy  energy.Params
	Budget  time.Duration
}

type RunOutcome struct {
	Record domain.RunRecord
	Result PlanResult
	// The instance the run planned, for snapshots and reporting.
	Instance *Instance
}

// RunService plans a request end to end and records the run. Distances,
// Runs and Events are optional.
type RunService struct {
	Solver    ports.TourSolver
	Distances ports.DistanceProvider
	Runs      ports.RunRepository
	Events    ports.EventPublisher
}

// Run builds the instance, plans it and persists the run summary. A run
// that finds no feasible schedule is recorded as failed and its error is
// returned alongside the outcome.
func (s *RunService) Run(ctx context.Context, req RunRequest) (out RunOutcome, err error) {
	runID := uuid.NewString()
	ctx = obs.WithRunID(ctx, runID)
	defer obs.Time(ctx, "run")(&err)

	if req.Fleet == nil {
		return RunOutcome{}, errors.New("run: fleet is required")
	}

	matrix := req.Matrix
	if matrix == nil {
		if s.Distances == nil {
			return RunOutcome{}, &domain.ConfigurationError{Op: "run", Msg: "no truck travel table and no distance provider"}
		}
		if matrix, err = BuildTruckMatrix(ctx, req.Nodes, s.Distances); err != nil {
			return RunOutcome{}, fmt.Errorf("run: %w", err)
		}
	}

	calc, err := energy.NewCalculator(req.Energy)
	if err != nil {
		return RunOutcome{}, fmt.Errorf("run: %w", err)
	}
	in, err := BuildInstance(req.Nodes, req.Fleet, matrix, calc, req.Options)
	if err != nil {
		return RunOutcome{}, fmt.Errorf("run: %w", err)
	}

	created := time.Now().UTC()
	res, planErr := NewPlanner(in, s.Solver, s.Events).Plan(ctx, runID, req.Budget)
	if planErr != nil && !errors.Is(planErr, domain.ErrNoFeasibleSolution) {
		return RunOutcome{}, fmt.Errorf("run: %w", planErr)
	}

	rec := domain.RunRecord{
		ID:             runID,
		ProblemName:    req.ProblemName,
		CreatedAt:      created,
		Status:         domain.RunFailed,
		NumCustomers:   in.NumCustomers(),
		NumDrones:      in.NumDrones(),
		ElapsedSeconds: res.Stats.Elapsed.Seconds(),
	}
	if planErr == nil {
		sol := res.Solution
		raw, err := json.Marshal(sol)
		if err != nil {
			return RunOutcome{}, fmt.Errorf("run: encode solution: %w", err)
		}
		rec.Status = domain.RunSucceeded
		rec.Makespan = sol.Objective
		rec.NumTruckCustomers = len(sol.TruckCustomers)
		rec.NumDroneCustomers = len(sol.DroneCustomers)
		rec.TruckWaiting = sol.Schedule.TruckWaiting
		rec.DroneWaiting = sol.Schedule.DroneWaiting
		rec.SolutionJSON = string(raw)
	}

	if s.Runs != nil {
		// The caller's context may already be past its deadline.
		if err := s.Runs.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
			return RunOutcome{}, fmt.Errorf("run: %w", err)
		}
	}
	log.Printf("run_id=%s op=run_finished status=%s makespan=%.1f truck=%d drone=%d",
		runID, rec.Status, rec.Makespan, rec.NumTruckCustomers, rec.NumDroneCustomers)

	out = RunOutcome{Record: rec, Result: res, Instance: in}
	if planErr != nil {
		return out, fmt.Errorf("run: %w", planErr)
	}
	return out, nil
}
