package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"sidekick-route-service/internal/api/dto"
	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/services"
)

const maxNodes = 200

// Planner is the part of services.RunService the handler needs.
type Planner interface {
	Run(ctx context.Context, req services.RunRequest) (services.RunOutcome, error)
}

// PlanDefaults fill options a request leaves unset.
type PlanDefaults struct {
	Drones    int
	Options   services.Options
	Budget    time.Duration
	MaxBudget time.Duration
	Energy    energy.Params
}

type PlanHandler struct {
	Service  Planner
	Defaults PlanDefaults
}

// Plan validates a problem, runs the planner on it and returns the best
// schedule. Runs that find no feasible schedule answer 422 with the
// recorded run.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.PlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svcReq, err := h.toRunRequest(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.Service.Run(r.Context(), svcReq)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoFeasibleSolution) && out.Record.ID != "":
		writeJSON(w, r, http.StatusUnprocessableEntity, dto.PlanResponse{Run: toRunResponse(out.Record)})
		return
	case domain.IsConfigurationError(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	default:
		log.Printf("run_id=%s op=plan_failed err=%v", out.Record.ID, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, r, http.StatusOK, toPlanResponse(out))
}

func (h *PlanHandler) toRunRequest(req dto.PlanRequest) (services.RunRequest, error) {
	if len(req.Nodes) == 0 {
		return services.RunRequest{}, errors.New("nodes are required")
	}
	if len(req.Nodes) > maxNodes {
		return services.RunRequest{}, fmt.Errorf("at most %d nodes are supported", maxNodes)
	}
	if len(req.Vehicles) == 0 {
		return services.RunRequest{}, errors.New("vehicles are required")
	}

	drones := h.Defaults.Drones
	if req.Options.Drones != nil {
		drones = *req.Options.Drones
	}
	if drones < 0 {
		return services.RunRequest{}, errors.New("options.drones must not be negative")
	}

	opts := h.Defaults.Options
	if req.Options.RequireTruckAtDepot != nil {
		opts.RequireTruckAtDepot = *req.Options.RequireTruckAtDepot
	}
	if req.Options.RequireDriver != nil {
		opts.RequireDriver = *req.Options.RequireDriver
	}

	budget := h.Defaults.Budget
	if s := req.Options.TimeBudgetSeconds; s != nil {
		budget = time.Duration(*s * float64(time.Second))
	}
	if budget <= 0 || (h.Defaults.MaxBudget > 0 && budget > h.Defaults.MaxBudget) {
		return services.RunRequest{}, fmt.Errorf("options.time_budget_seconds must be in (0, %g]", h.Defaults.MaxBudget.Seconds())
	}

	params := h.Defaults.Energy
	if req.Options.EnergyModel != "" {
		m, err := energy.ParseModel(req.Options.EnergyModel)
		if err != nil {
			return services.RunRequest{}, err
		}
		params.Model = m
	}

	vehicles := make([]domain.Vehicle, 0, len(req.Vehicles))
	for _, v := range req.Vehicles {
		vehicles = append(vehicles, domain.Vehicle{
			ID:           v.ID,
			Kind:         domain.VehicleKind(v.Type),
			TakeoffSpeed: v.TakeoffSpeed,
			CruiseSpeed:  v.CruiseSpeed,
			LandingSpeed: v.LandingSpeed,
			YawRateDeg:   v.YawRateDeg,
			CruiseAlt:    v.CruiseAlt,
			CapacityLbs:  v.CapacityLbs,
			LaunchTime:   v.LaunchTime,
			RecoveryTime: v.RecoveryTime,
			ServiceTime:  v.ServiceTime,
			BatteryPower: v.BatteryPower,
			FlightRange:  v.FlightRange,
		})
	}
	fleet, _, err := domain.NewFleet(vehicles, drones)
	if err != nil {
		return services.RunRequest{}, err
	}

	nodes := make([]domain.Node, 0, len(req.Nodes))
	for _, n := range req.Nodes {
		kind := domain.NodeKind(n.Type)
		if kind != domain.NodeDepot && kind != domain.NodeCustomer {
			return services.RunRequest{}, fmt.Errorf("node %d has unknown type %d", n.ID, n.Type)
		}
		nodes = append(nodes, domain.Node{
			ID:              n.ID,
			Kind:            kind,
			Position:        domain.Coordinates{Lat: n.Lat, Lon: n.Lon, AltMeters: n.AltMeters},
			ParcelWeightLbs: n.ParcelLbs,
			Address:         n.Address,
		})
	}
	slices.SortFunc(nodes, func(a, b domain.Node) int { return a.ID - b.ID })
	for i, n := range nodes {
		if n.ID != i {
			return services.RunRequest{}, fmt.Errorf("node ids must be 0..%d, missing %d", len(nodes)-1, i)
		}
	}
	if nodes[0].Kind != domain.NodeDepot {
		return services.RunRequest{}, errors.New("node 0 must be the depot")
	}
	for _, n := range nodes[1:] {
		if n.Kind != domain.NodeCustomer {
			return services.RunRequest{}, fmt.Errorf("node %d must be a customer", n.ID)
		}
	}
	fleet.ApplyServiceTimes(nodes)

	var matrix domain.TruckMatrix
	if len(req.TruckLegs) > 0 {
		matrix = make(domain.TruckMatrix, len(req.TruckLegs))
		for _, l := range req.TruckLegs {
			matrix.Set(l.From, l.To, domain.NewTruckLeg(l.Seconds, l.Meters))
		}
	}

	return services.RunRequest{
		ProblemName: req.ProblemName,
		Nodes:       nodes,
		Fleet:       fleet,
		Matrix:      matrix,
		Options:     opts,
		Energy:      params,
		Budget:      budget,
	}, nil
}

func toPlanResponse(out services.RunOutcome) dto.PlanResponse {
	sol := out.Result.Solution
	acts := append([]domain.Activity(nil), sol.Schedule.Activities...)
	domain.SortActivities(acts)

	res := dto.PlanResponse{
		Run:            toRunResponse(out.Record),
		Tour:           sol.Tour,
		TruckCustomers: sol.TruckCustomers,
		DroneCustomers: sol.DroneCustomers,
		Sorties:        make([]dto.SortieResponse, 0, len(sol.Sorties)),
		Activities:     make([]dto.ActivityResponse, 0, len(acts)),
		Thresholds:     out.Result.Stats.Thresholds,
		ToursExplored:  out.Result.Stats.ToursExplored,
		BudgetExpired:  out.Result.Stats.BudgetExpired,
	}
	for _, s := range sol.Sorties {
		res.Sorties = append(res.Sorties, dto.SortieResponse{Drone: s.Drone, Launch: s.Launch, Customer: s.Customer, Recover: s.Recover})
	}
	for _, a := range acts {
		res.Activities = append(res.Activities, dto.ActivityResponse{
			VehicleID:     a.VehicleID,
			VehicleType:   a.VehicleKind.String(),
			Activity:      a.Status.String(),
			Status:        a.Gantt.String(),
			StartTime:     a.StartTime,
			StartNode:     a.StartNode,
			EndTime:       a.EndTime,
			EndNode:       a.EndNode,
			Description:   a.Description,
			DronesOnBoard: a.DronesOnBoard,
		})
	}
	return res
}
