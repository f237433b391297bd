package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name.
const namespace = "infrasim"

// Registry holds every collector the server and simulation record into.
// Collectors are registered on a private prometheus.Registry so tests can
// build as many as they like.
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Validation Metrics
	LevelsValidatedTotal  *prometheus.CounterVec
	ValidationErrorsTotal *prometheus.CounterVec
	ValidationDuration    prometheus.Histogram

	// Simulation Metrics
	SimulationsActive        prometheus.Gauge
	SimulationTicksTotal     prometheus.Counter
	SimulationTickDuration   prometheus.Histogram
	JobFiringsTotal          *prometheus.CounterVec
	IncidentTransitionsTotal *prometheus.CounterVec
	AlertsTotal              *prometheus.CounterVec

	// Source Metrics
	SourceDocumentsTotal *prometheus.CounterVec
	SourceErrorsTotal    *prometheus.CounterVec
	SourceReadDuration   *prometheus.HistogramVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry used by the server binary.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{registry: reg}
	r.initHTTPMetrics()
	r.initValidationMetrics()
	r.initSimulationMetrics()
	r.initSourceMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
