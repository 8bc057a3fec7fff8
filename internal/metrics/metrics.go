// Package metrics exposes Prometheus collectors for classifier calls and
// training-file ingestion.
//
// All methods are safe on a nil *Metrics so callers that run without metrics
// (tests, tools) need no guards.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	classifierRequests *prometheus.CounterVec
	classifierDuration *prometheus.HistogramVec
	ingestFiles        *prometheus.CounterVec
	ingestRows         *prometheus.CounterVec
	predictionUnits    prometheus.Histogram
	retrainRecords     prometheus.Histogram
}

// New creates a Metrics with its own registry, including Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		classifierRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textclass_classifier_requests_total",
				Help: "Requests sent to the classification service",
			},
			[]string{"operation", "status"},
		),
		classifierDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "textclass_classifier_request_duration_seconds",
				Help:    "Round-trip latency of classification service requests",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		ingestFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textclass_ingest_files_total",
				Help: "Training files parsed, by format and outcome",
			},
			[]string{"format", "outcome"},
		),
		ingestRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "textclass_ingest_rows_total",
				Help: "Training rows seen during normalization, kept or dropped",
			},
			[]string{"result"},
		),
		predictionUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "textclass_prediction_units",
			Help:    "Classification units per prediction request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		retrainRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "textclass_retrain_records",
			Help:    "Training records per retrain request",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.classifierRequests,
		m.classifierDuration,
		m.ingestFiles,
		m.ingestRows,
		m.predictionUnits,
		m.retrainRecords,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveClassifierCall records one service request. status is the HTTP status
// code, or 0 when the request never got a response.
func (m *Metrics) ObserveClassifierCall(operation string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.classifierRequests.WithLabelValues(operation, code).Inc()
	m.classifierDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveIngest records one parsed training file.
func (m *Metrics) ObserveIngest(format, outcome string, kept, dropped int) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	m.ingestFiles.WithLabelValues(format, outcome).Inc()
	if kept > 0 {
		m.ingestRows.WithLabelValues("kept").Add(float64(kept))
	}
	if dropped > 0 {
		m.ingestRows.WithLabelValues("dropped").Add(float64(dropped))
	}
}

// ObservePredictionUnits records the batch size of a prediction request.
func (m *Metrics) ObservePredictionUnits(n int) {
	if m == nil {
		return
	}
	m.predictionUnits.Observe(float64(n))
}

// ObserveRetrainRecords records the number of records sent for retraining.
func (m *Metrics) ObserveRetrainRecords(n int) {
	if m == nil {
		return
	}
	m.retrainRecords.Observe(float64(n))
}
