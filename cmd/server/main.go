package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sidekick-route-service/internal/adapters/cache"
	"sidekick-route-service/internal/adapters/distance"
	"sidekick-route-service/internal/adapters/events"
	"sidekick-route-service/internal/adapters/repositories"
	"sidekick-route-service/internal/adapters/tsp"
	"sidekick-route-service/internal/api"
	"sidekick-route-service/internal/api/handlers"
	"sidekick-route-service/internal/config"
	"sidekick-route-service/internal/platform/db"
	"sidekick-route-service/internal/platform/metrics"
	"sidekick-route-service/internal/ports"
	"sidekick-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQLite or Postgres, ORS, Redis) behind ports and starts the HTTP server.
func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	conn, dialect, err := openStore(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		log.Fatal(err)
	}

	var (
		runs     ports.RunRepository
		legCache ports.LegCache
	)
	if dialect == repositories.Postgres {
		runs = repositories.NewPostgresRunRepository(conn)
		legCache = cache.NewSQLLegCache(conn)
	} else {
		runs = repositories.NewSqliteRunRepository(conn)
		legCache = cache.NewSqliteLegCache(conn)
	}

	svc := &services.RunService{Solver: tsp.NewSolver(), Runs: runs}

	// Without a key, requests must carry their own truck legs.
	if cfg.ORS.APIKey != "" {
		provider, err := distance.NewORSDistanceProvider(cfg.ORS.APIKey, legCache, distance.ORSConfig{
			BaseURL:           cfg.ORS.BaseURL,
			Profile:           cfg.ORS.Profile,
			RequestsPerMinute: cfg.ORS.RequestsPerMinute,
		})
		if err != nil {
			log.Fatal(err)
		}
		svc.Distances = provider
	} else {
		log.Println("ORS_API_KEY not set; plans must include truck_legs")
	}

	if cfg.Redis.URL != "" {
		pub, err := events.NewRedisPublisher(cfg.Redis.URL)
		if err != nil {
			log.Fatal(err)
		}
		defer pub.Close()
		svc.Events = pub
	} else {
		svc.Events = events.LogPublisher{}
	}

	metrics.RegisterDefault()

	router := api.NewRouter(svc, runs, handlers.PlanDefaults{
		Drones: cfg.Planner.Drones,
		Options: services.Options{
			RequireTruckAtDepot: cfg.Planner.RequireTruckAtDepot,
			RequireDriver:       cfg.Planner.RequireDriver,
		},
		Budget: cfg.Planner.TimeBudget,
		// Leave room to encode the response before the write deadline.
		MaxBudget: cfg.Server.WriteTimeout - 10*time.Second,
		Energy:    cfg.Energy.Params,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown failed: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s db=%s", cfg.Server.Port, cfg.Database.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
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
