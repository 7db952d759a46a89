package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the processing pipeline: throughput, latency, which
// tier resolved each field mapping, and how often results need a human.
type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	mappingResolved *prometheus.CounterVec
	manualReview    prometheus.Counter
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finpipe",
			Subsystem: "worker",
			Name:      "attachment_process_total",
			Help:      "Total processed attachments by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finpipe",
			Subsystem: "worker",
			Name:      "attachment_process_duration_seconds",
			Help:      "Attachment processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finpipe",
			Subsystem: "worker",
			Name:      "attachment_process_in_flight",
			Help:      "Number of in-flight attachment processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	mappingResolved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finpipe",
			Subsystem: "worker",
			Name:      "field_mapping_resolved_total",
			Help:      "Accepted field mappings by resolution tier.",
		},
		[]string{"service", "source"},
	)
	manualReview := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finpipe",
			Subsystem: "worker",
			Name:      "manual_review_flagged_total",
			Help:      "Results flagged for manual review.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, mappingResolved, manualReview)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		mappingResolved: mappingResolved,
		manualReview:    manualReview,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartAttachment() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishAttachment(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveMappingResolved(service, source string) {
	m.mappingResolved.WithLabelValues(service, source).Inc()
}

func (m *WorkerMetrics) ObserveManualReview() {
	m.manualReview.Inc()
}
