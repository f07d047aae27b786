package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planner_phase_duration_seconds",
			Help:    "Time spent per planner phase call.",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"phase"},
	)
	TimingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_timing_runs_total", Help: "Timing phase outcomes."},
		[]string{"status"},
	)
	ToursExplored = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "planner_tours_explored_total", Help: "Distinct truck tours examined."},
	)
	IncumbentMakespan = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "planner_incumbent_makespan_seconds", Help: "Makespan of the best plan of the latest run."},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PhaseDuration)
		Registry.MustRegister(TimingRuns)
		Registry.MustRegister(ToursExplored)
		Registry.MustRegister(IncumbentMakespan)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
