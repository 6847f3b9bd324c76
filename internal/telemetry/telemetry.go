// Package telemetry tracks resolution outcomes and exposes them as
// Prometheus metrics, scraped via the server's /metrics endpoint.
package telemetry

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formpilot_resolutions_total",
		Help: "Resolved questions by answer source.",
	}, []string{"source"})

	backendFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formpilot_backend_failures_total",
		Help: "Generation backend failures by tier.",
	}, []string{"backend"})

	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formpilot_batch_duration_seconds",
		Help:    "Wall time spent resolving one question batch.",
		Buckets: prometheus.DefBuckets,
	})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formpilot_batch_questions",
		Help:    "Number of questions per resolution batch.",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
)

// Telemetry records resolution events. A nil *Telemetry is valid and records
// nothing, which keeps instrumentation optional in tests.
type Telemetry struct {
	enabled bool
	logger  *log.Logger
}

// New creates a telemetry recorder. When disabled, all recording methods are
// no-ops but the /metrics endpoint still serves the (unchanging) series.
func New(enabled bool) *Telemetry {
	return &Telemetry{
		enabled: enabled,
		logger:  log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
	}
}

// RecordResolution counts one resolved question by source tag.
func (t *Telemetry) RecordResolution(source string) {
	if t == nil || !t.enabled {
		return
	}
	resolutionsTotal.WithLabelValues(source).Inc()
}

// RecordBackendFailure counts a failed generation attempt for a tier.
func (t *Telemetry) RecordBackendFailure(backend string) {
	if t == nil || !t.enabled {
		return
	}
	backendFailuresTotal.WithLabelValues(backend).Inc()
}

// ObserveBatch records the size and duration of a completed batch.
func (t *Telemetry) ObserveBatch(questions int, d time.Duration) {
	if t == nil || !t.enabled {
		return
	}
	batchDurationSeconds.Observe(d.Seconds())
	batchSize.Observe(float64(questions))
	t.logger.Printf("batch of %d questions resolved in %s", questions, d)
}
