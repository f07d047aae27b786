package api

import (
	"net/http"

	"sidekick-route-service/internal/api/handlers"
	"sidekick-route-service/internal/platform/metrics"
	"sidekick-route-service/internal/ports"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(planner handlers.Planner, runs ports.RunRepository, defaults handlers.PlanDefaults) http.Handler {
	mux := http.NewServeMux()

	planHandler := &handlers.PlanHandler{Service: planner, Defaults: defaults}
	runHandler := &handlers.RunHandler{Repo: runs}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.HandleFunc("POST /plans", planHandler.Plan)
	mux.HandleFunc("GET /runs", runHandler.List)
	mux.HandleFunc("GET /runs/{id}", runHandler.Get)
	mux.Handle("GET /metrics", metrics.Handler())

	return requestIDMiddleware(loggingMiddleware(mux))
}
