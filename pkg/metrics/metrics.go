package metrics

import (
	"runtime"
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordValidation records the outcome of validating one document
func (r *Registry) RecordValidation(valid bool, duration time.Duration) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	r.LevelsValidatedTotal.WithLabelValues(result).Inc()
	r.ValidationDuration.Observe(duration.Seconds())
}

// RecordValidationError counts one reported validation error
func (r *Registry) RecordValidationError(class, code string) {
	r.ValidationErrorsTotal.WithLabelValues(class, code).Inc()
}

// RecordTick records one simulated tick
func (r *Registry) RecordTick(duration time.Duration) {
	r.SimulationTicksTotal.Inc()
	r.SimulationTickDuration.Observe(duration.Seconds())
}

// RecordJobFiring records a scheduled job firing
func (r *Registry) RecordJobFiring(levelID, jobID string) {
	r.JobFiringsTotal.WithLabelValues(levelID, jobID).Inc()
}

// RecordIncidentTransition records an incident entering a lifecycle phase
func (r *Registry) RecordIncidentTransition(incidentType, phase string) {
	r.IncidentTransitionsTotal.WithLabelValues(incidentType, phase).Inc()
}

// RecordAlert records a node spending a tick in a threshold condition
func (r *Registry) RecordAlert(kind, severity string) {
	r.AlertsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordSourceRead records fetching a document from a level source
func (r *Registry) RecordSourceRead(source string, duration time.Duration, err error) {
	if err != nil {
		r.SourceErrorsTotal.WithLabelValues(source, "read").Inc()
		return
	}
	r.SourceDocumentsTotal.WithLabelValues(source).Inc()
	r.SourceReadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSourceListError records a failure to enumerate a level source
func (r *Registry) RecordSourceListError(source string) {
	r.SourceErrorsTotal.WithLabelValues(source, "list").Inc()
}

// UpdateSystemMetrics samples runtime statistics
func (r *Registry) UpdateSystemMetrics(startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() {
	r.HTTPRequestsInFlight.Dec()
}
