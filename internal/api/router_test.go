package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidekick-route-service/internal/adapters/repositories"
	"sidekick-route-service/internal/adapters/tsp"
	"sidekick-route-service/internal/api/dto"
	"sidekick-route-service/internal/api/handlers"
	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/energy"
	"sidekick-route-service/internal/platform/db"
	"sidekick-route-service/internal/platform/metrics"
	"sidekick-route-service/internal/ports"
	"sidekick-route-service/internal/services"
)

type fakePlanner struct {
	got services.RunRequest
	out services.RunOutcome
	err error
}

func (f *fakePlanner) Run(_ context.Context, req services.RunRequest) (services.RunOutcome, error) {
	f.got = req
	return f.out, f.err
}

type memRuns struct {
	runs map[string]domain.RunRecord
}

func (m *memRuns) SaveRun(_ context.Context, r domain.RunRecord) error {
	m.runs[r.ID] = r
	return nil
}

func (m *memRuns) GetRun(_ context.Context, id string) (domain.RunRecord, error) {
	r, ok := m.runs[id]
	if !ok {
		return domain.RunRecord{}, ports.ErrRunNotFound
	}
	return r, nil
}

func (m *memRuns) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	out := make([]domain.RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out[:min(limit, len(out))], nil
}

func testDefaults() handlers.PlanDefaults {
	p := energy.DefaultParams()
	p.Model = energy.ModelUnlimited
	return handlers.PlanDefaults{
		Drones:    1,
		Options:   services.DefaultOptions(),
		Budget:    10 * time.Second,
		MaxBudget: time.Minute,
		Energy:    p,
	}
}

// squareProblem is a depot and three customers about a kilometre apart.
func squareProblem() dto.PlanRequest {
	return dto.PlanRequest{
		ProblemName: "square",
		Nodes: []dto.NodeRequest{
			{ID: 0, Type: 0, Lat: 40, Lon: -75},
			{ID: 1, Type: 1, Lat: 40, Lon: -74.99, ParcelLbs: 2},
			{ID: 2, Type: 1, Lat: 40.01, Lon: -74.99, ParcelLbs: 2},
			{ID: 3, Type: 1, Lat: 40.01, Lon: -75, ParcelLbs: 2},
		},
		Vehicles: []dto.VehicleRequest{
			{ID: 1, Type: 1, ServiceTime: 30},
			{ID: 2, Type: 2, TakeoffSpeed: 5, CruiseSpeed: 20, LandingSpeed: 3, YawRateDeg: 360, CruiseAlt: 50,
				CapacityLbs: 5, LaunchTime: 60, RecoveryTime: 30, ServiceTime: 60, BatteryPower: 500000, FlightRange: "low"},
		},
	}
}

func withLegs(req dto.PlanRequest) dto.PlanRequest {
	for _, a := range req.Nodes {
		for _, b := range req.Nodes {
			if a.ID != b.ID {
				req.TruckLegs = append(req.TruckLegs, dto.TruckLegRequest{From: a.ID, To: b.ID, Seconds: 120, Meters: 1200})
			}
		}
	}
	return req
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestPlanMethodNotAllowed(t *testing.T) {
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())
	rec := do(t, h, http.MethodGet, "/plans", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPlanAppliesOptions(t *testing.T) {
	fp := &fakePlanner{out: services.RunOutcome{Record: domain.RunRecord{ID: "r1", Status: domain.RunSucceeded}}}
	h := NewRouter(fp, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	req := withLegs(squareProblem())
	drones, driver, budget := 0, false, 5.0
	req.Options = dto.PlanOptions{Drones: &drones, RequireDriver: &driver, TimeBudgetSeconds: &budget, EnergyModel: "fixed"}

	rec := do(t, h, http.MethodPost, "/plans", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := fp.got
	assert.Equal(t, "square", got.ProblemName)
	assert.Empty(t, got.Fleet.Drones)
	assert.False(t, got.Options.RequireDriver)
	assert.True(t, got.Options.RequireTruckAtDepot)
	assert.Equal(t, 5*time.Second, got.Budget)
	assert.Equal(t, energy.ModelFixed, got.Energy.Model)
	assert.Len(t, got.Matrix, 12)
	assert.Equal(t, 30.0, got.Nodes[1].TruckServiceTime)
}

func TestPlanValidation(t *testing.T) {
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	tooLong := 3600.0
	negative := -1
	tests := []struct {
		name   string
		mutate func(*dto.PlanRequest)
	}{
		{"no nodes", func(r *dto.PlanRequest) { r.Nodes = nil }},
		{"no vehicles", func(r *dto.PlanRequest) { r.Vehicles = nil }},
		{"budget above max", func(r *dto.PlanRequest) { r.Options.TimeBudgetSeconds = &tooLong }},
		{"negative drones", func(r *dto.PlanRequest) { r.Options.Drones = &negative }},
		{"unknown model", func(r *dto.PlanRequest) { r.Options.EnergyModel = "magic" }},
		{"bad node type", func(r *dto.PlanRequest) { r.Nodes[1].Type = 5 }},
		{"gap in node ids", func(r *dto.PlanRequest) { r.Nodes[3].ID = 7 }},
		{"second depot", func(r *dto.PlanRequest) { r.Nodes[2].Type = 0 }},
		{"two trucks", func(r *dto.PlanRequest) { r.Vehicles = append(r.Vehicles, dto.VehicleRequest{ID: 9, Type: 1}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := squareProblem()
			tt.mutate(&req)
			rec := do(t, h, http.MethodPost, "/plans", req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPlanRejectsUnknownFields(t *testing.T) {
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())
	req := httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(`{"nodes":[],"hub":"x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanNoFeasibleSolution(t *testing.T) {
	fp := &fakePlanner{
		out: services.RunOutcome{Record: domain.RunRecord{ID: "r2", Status: domain.RunFailed}},
		err: fmt.Errorf("run: %w", domain.ErrNoFeasibleSolution),
	}
	h := NewRouter(fp, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	rec := do(t, h, http.MethodPost, "/plans", withLegs(squareProblem()))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var res dto.PlanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "failed", res.Run.Status)
}

func TestPlanInternalError(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	fp := &fakePlanner{
		out: services.RunOutcome{Record: domain.RunRecord{ID: "run-42"}},
		err: fmt.Errorf("boom"),
	}
	h := NewRouter(fp, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())
	rec := do(t, h, http.MethodPost, "/plans", withLegs(squareProblem()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, logs.String(), "run_id=run-42 op=plan_failed err=boom")
}

func TestRunsEndpoints(t *testing.T) {
	runs := &memRuns{runs: map[string]domain.RunRecord{
		"r1": {ID: "r1", Status: domain.RunSucceeded, Makespan: 100, SolutionJSON: `{"Objective":100}`},
	}}
	h := NewRouter(&fakePlanner{}, runs, testDefaults())

	rec := do(t, h, http.MethodGet, "/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.ListRunsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Runs, 1)

	rec = do(t, h, http.MethodGet, "/runs/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"solution":{"Objective":100}`)

	rec = do(t, h, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RegisterDefault()
	h := NewRouter(&fakePlanner{}, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	do(t, h, http.MethodGet, "/health", nil)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="GET /health",status="200"}`)
}

func TestPlanMissingTruckLeg(t *testing.T) {
	svc := &services.RunService{Solver: tsp.NewSolver()}
	h := NewRouter(svc, &memRuns{runs: map[string]domain.RunRecord{}}, testDefaults())

	req := withLegs(squareProblem())
	req.TruckLegs = req.TruckLegs[1:]
	rec := do(t, h, http.MethodPost, "/plans", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPlanEndToEnd(t *testing.T) {
	conn, err := db.OpenSqlite(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, repositories.InitSchema(context.Background(), conn, repositories.SQLite))
	repo := repositories.NewSqliteRunRepository(conn)

	svc := &services.RunService{Solver: tsp.NewSolver(), Runs: repo}
	h := NewRouter(svc, repo, testDefaults())

	rec := do(t, h, http.MethodPost, "/plans", withLegs(squareProblem()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res dto.PlanResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "succeeded", res.Run.Status)
	assert.Equal(t, 3, len(res.TruckCustomers)+len(res.DroneCustomers))
	assert.Greater(t, res.Run.Makespan, 0.0)
	assert.NotEmpty(t, res.Activities)

	rec = do(t, h, http.MethodGet, "/runs/"+res.Run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail dto.RunDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, res.Run.Makespan, detail.Makespan)
	assert.NotEmpty(t, detail.Solution)
}
