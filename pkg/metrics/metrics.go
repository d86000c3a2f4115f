// Package metrics holds the Prometheus collectors of the planner and its
// HTTP surface.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlansTotal counts district plans by outcome (ok, error).
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "snowroute_plans_total", Help: "District plans by outcome."},
		[]string{"outcome"},
	)
	// StageDuration records the time spent in each pipeline stage.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snowroute_stage_duration_seconds",
			Help:    "Planner stage duration in seconds.",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)
	// DeadheadMeters accumulates the repeated-pass distance added by Eulerization.
	DeadheadMeters = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "snowroute_deadhead_meters_total", Help: "Deadhead distance added to cover all streets, in meters."},
	)
	// ApproximateMatchings counts plans whose odd-node matching fell back to the heuristic.
	ApproximateMatchings = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "snowroute_approximate_matchings_total", Help: "Plans that used the approximate matching."},
	)
)

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlansTotal)
		Registry.MustRegister(StageDuration)
		Registry.MustRegister(DeadheadMeters)
		Registry.MustRegister(ApproximateMatchings)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
