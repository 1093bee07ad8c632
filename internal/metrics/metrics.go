package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
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

	// OptimizeRequests counts optimization runs by final status.
	OptimizeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimize_requests_total", Help: "Optimization runs by result status."},
		[]string{"status"},
	)
	// StageDuration tracks per-stage pipeline durations in seconds.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "pipeline_stage_duration_seconds", Help: "Pipeline stage duration in seconds.", Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 30}},
		[]string{"stage"},
	)
	// StageTimeouts counts governor deadline hits per stage.
	StageTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "governor_stage_timeouts_total", Help: "Stage deadline hits."},
		[]string{"stage"},
	)
	// FallbackUses counts degraded results by winning strategy.
	FallbackUses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fallback_strategy_total", Help: "Fallback results by strategy."},
		[]string{"strategy"},
	)
)

// RegisterDefault registers all collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeRequests)
		Registry.MustRegister(StageDuration)
		Registry.MustRegister(StageTimeouts)
		Registry.MustRegister(FallbackUses)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
