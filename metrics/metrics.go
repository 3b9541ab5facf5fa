package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "saferoads"
	subsystem = "api"
)

var (
	once sync.Once

	// ScansTotal counts POST /scan outcomes: escalated, recorded, rejected or failed.
	ScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "scans_total",
		Help:      "Total number of scan requests, labeled by outcome.",
	}, []string{"result"})

	// AssessmentsTotal counts damage assessments by source and result.
	AssessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assessments_total",
		Help:      "Total number of damage assessments, labeled by source and result (ok, error, simulated).",
	}, []string{"source", "result"})

	AssessmentDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "assessment_duration_seconds",
		Help:      "Time spent waiting for the inference service.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source"})

	// UpstreamRequestsTotal counts calls to the places and weather providers.
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "upstream_requests_total",
		Help:      "Total number of third-party requests, labeled by upstream and result.",
	}, []string{"upstream", "result"})

	EmergencyCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "emergency_cache_total",
		Help:      "Emergency lookup cache hits and misses.",
	}, []string{"result"})

	EscalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "escalations_total",
		Help:      "Total number of assessments that crossed the damage threshold.",
	})

	EscalationPublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "escalation_publish_error_total",
		Help:      "Total number of escalation events that could not be published to RabbitMQ.",
	})

	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "websocket_clients",
		Help:      "Number of connected escalation listeners.",
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ScansTotal,
			AssessmentsTotal,
			AssessmentDurationSeconds,
			UpstreamRequestsTotal,
			EmergencyCacheTotal,
			EscalationsTotal,
			EscalationPublishErrorTotal,
			WebsocketClients,
		)
	})
}

// ObserveSince records the elapsed time since start on a histogram child.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Result maps an error onto the ok/error label pair.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
