package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"sidekick-route-service/internal/adapters/cache"
	"sidekick-route-service/internal/adapters/csvio"
	"sidekick-route-service/internal/adapters/distance"
	"sidekick-route-service/internal/adapters/events"
	"sidekick-route-service/internal/adapters/repositories"
	"sidekick-route-service/internal/adapters/tsp"
	"sidekick-route-service/internal/config"
	"sidekick-route-service/internal/domain"
	"sidekick-route-service/internal/platform/db"
	"sidekick-route-service/internal/ports"
	"sidekick-route-service/internal/services"
)

const performanceFile = "performance_summary.csv"

// planner solves one problem directory and writes the schedule and a
// performance line under -out.
func main() {
	var (
		problemDir   = flag.String("problem", "", "problem directory holding tbl_locations.csv")
		vehiclesPath = flag.String("vehicles", "", "vehicle table CSV")
		drones       = flag.Int("drones", -1, "drones to use (default from config)")
		budget       = flag.Duration("budget", 0, "planning time budget (default from config)")
		configPath   = flag.String("config", "", "optional YAML config file")
		outDir       = flag.String("out", "results", "output directory")
		snapshotAt   = flag.Float64("snapshot-at", -1, "print vehicle positions at this many seconds into the schedule")
	)
	flag.Parse()

	if *problemDir == "" || *vehiclesPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *drones < 0 {
		*drones = cfg.Planner.Drones
	}
	if *budget <= 0 {
		*budget = cfg.Planner.TimeBudget
	}

	if err := run(cfg, *problemDir, *vehiclesPath, *drones, *budget, *outDir, *snapshotAt); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config, problemDir, vehiclesPath string, drones int, budget time.Duration, outDir string, snapshotAt float64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	problem, err := csvio.LoadProblem(problemDir, vehiclesPath, drones)
	if err != nil {
		return err
	}

	conn, dialect, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		return err
	}

	svc := &services.RunService{Solver: tsp.NewSolver(), Events: events.LogPublisher{}}
	var legCache ports.LegCache
	if dialect == repositories.Postgres {
		svc.Runs = repositories.NewPostgresRunRepository(conn)
		legCache = cache.NewSQLLegCache(conn)
	} else {
		svc.Runs = repositories.NewSqliteRunRepository(conn)
		legCache = cache.NewSqliteLegCache(conn)
	}

	if problem.Matrix == nil && cfg.ORS.APIKey != "" {
		provider, err := distance.NewORSDistanceProvider(cfg.ORS.APIKey, legCache, distance.ORSConfig{
			BaseURL:           cfg.ORS.BaseURL,
			Profile:           cfg.ORS.Profile,
			RequestsPerMinute: cfg.ORS.RequestsPerMinute,
		})
		if err != nil {
			return err
		}
		svc.Distances = provider
	}

	if cfg.Redis.URL != "" {
		pub, err := events.NewRedisPublisher(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer pub.Close()
		svc.Events = pub
	}

	opts := services.Options{
		RequireTruckAtDepot: cfg.Planner.RequireTruckAtDepot,
		RequireDriver:       cfg.Planner.RequireDriver,
	}
	out, err := svc.Run(ctx, services.RunRequest{
		ProblemName: problem.Name,
		Nodes:       problem.Nodes,
		Fleet:       problem.Fleet,
		Matrix:      problem.Matrix,
		Options:     opts,
		Energy:      cfg.Energy.Params,
		Budget:      budget,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	sol := out.Result.Solution
	numDrones := len(problem.Fleet.Drones)
	solPath := filepath.Join(outDir, fmt.Sprintf("tbl_solutions_%s_%d_mfstsp_heuristic.csv", problem.Name, numDrones))
	if err := writeSolution(solPath, csvio.SolutionHeader{
		ProblemName:         problem.Name,
		VehicleFile:         filepath.Base(vehiclesPath),
		Budget:              budget,
		NumDrones:           numDrones,
		RequireTruckAtDepot: opts.RequireTruckAtDepot,
		RequireDriver:       opts.RequireDriver,
	}, sol); err != nil {
		return err
	}

	if err := appendPerformance(filepath.Join(outDir, performanceFile), csvio.PerformanceRow{
		ProblemName:         problem.Name,
		VehicleFile:         filepath.Base(vehiclesPath),
		BudgetSeconds:       budget.Seconds(),
		NumDrones:           numDrones,
		RequireTruckAtDepot: opts.RequireTruckAtDepot,
		RequireDriver:       opts.RequireDriver,
		NumCustomers:        out.Record.NumCustomers,
		Timestamp:           out.Record.CreatedAt.Format(time.DateTime),
		Objective:           sol.Objective,
		ElapsedSeconds:      out.Record.ElapsedSeconds,
		NumDroneCustomers:   len(sol.DroneCustomers),
		NumTruckCustomers:   len(sol.TruckCustomers),
		TruckWaiting:        sol.Schedule.TruckWaiting,
		DroneWaiting:        sol.Schedule.DroneWaiting,
	}); err != nil {
		return err
	}

	log.Printf("run_id=%s makespan=%.2f truck_customers=%v drone_customers=%v solution=%s",
		out.Record.ID, sol.Objective, sol.TruckCustomers, sol.DroneCustomers, solPath)

	if snapshotAt >= 0 {
		printSnapshot(out.Instance, sol.Schedule, snapshotAt)
	}
	return nil
}

func writeSolution(path string, h csvio.SolutionHeader, sol domain.Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	if err := csvio.WriteSolution(f, h, sol); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func appendPerformance(path string, row csvio.PerformanceRow) error {
	_, statErr := os.Stat(path)
	newFile := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("planner: %w", err)
	}
	if err := csvio.AppendPerformance(f, row, newFile); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSnapshot(in *services.Instance, sched domain.Schedule, t float64) {
	fmt.Printf("t=%.1f\n", t)
	for _, st := range in.Snapshot(sched, t) {
		where := "in transit"
		if st.Node >= 0 {
			where = fmt.Sprintf("node %d", st.Node)
		}
		if st.RidingOn != 0 {
			where = fmt.Sprintf("on truck %d", st.RidingOn)
		}
		fmt.Printf("%s %d: lat=%.6f lon=%.6f alt=%.1f heading=%.0f %s (%s)\n",
			st.Kind, st.VehicleID, st.Position.Lat, st.Position.Lon, st.Position.AltMeters,
			st.HeadingDeg, where, st.Status)
	}
}

func openStore(c config.DatabaseConfig) (*sql.DB, repositories.Dialect, error) {
	if c.Driver == "postgres" {
		conn, err := db.Open(c.URL)
		return conn, repositories.Postgres, err
	}
	conn, err := db.OpenSqlite(c.Path)
	return conn, repositories.SQLite, err
}
