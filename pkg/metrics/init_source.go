package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSourceMetrics() {
	r.SourceDocumentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_documents_total",
			Help:      "Total number of level documents read from a source",
		},
		[]string{"source"}, // dir, s3
	)

	r.SourceErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Total number of failures listing or reading level documents",
		},
		[]string{"source", "operation"},
	)

	r.SourceReadDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_read_duration_seconds",
			Help:      "Time to fetch one level document",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)
}
