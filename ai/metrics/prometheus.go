// Package metrics provides Prometheus metrics export for the synthesis
// pipeline and the model gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Cycle metrics
	cycleLatency *prometheus.HistogramVec
	cycleTotal   *prometheus.CounterVec
	cycleActive  prometheus.Gauge

	// Stage metrics
	stageLatency  *prometheus.HistogramVec
	stageFallback *prometheus.CounterVec

	// Source agent metrics
	sourceRecords  *prometheus.CounterVec
	sourceDegraded *prometheus.CounterVec

	// Gateway token metrics
	llmTokensUsed *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.cycleLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daybrief",
			Subsystem: "synthesis",
			Name:      "cycle_latency_seconds",
			Help:      "End-to-end synthesis cycle latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"status"},
	)

	e.cycleTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Subsystem: "synthesis",
			Name:      "cycles_total",
			Help:      "Total number of synthesis cycles by terminal status",
		},
		[]string{"status"},
	)

	e.cycleActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daybrief",
			Subsystem: "synthesis",
			Name:      "cycles_active",
			Help:      "Number of synthesis cycles currently in flight",
		},
	)

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daybrief",
			Subsystem: "synthesis",
			Name:      "stage_latency_seconds",
			Help:      "Per-stage latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.stageFallback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Subsystem: "synthesis",
			Name:      "stage_fallbacks_total",
			Help:      "Total times a stage took its deterministic fallback path",
		},
		[]string{"stage"},
	)

	e.sourceRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Subsystem: "source",
			Name:      "records_total",
			Help:      "Total structured records emitted per source",
		},
		[]string{"source_type"},
	)

	e.sourceDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Subsystem: "source",
			Name:      "degraded_total",
			Help:      "Total times a source timed out or failed during assembly",
		},
		[]string{"source_type"},
	)

	e.llmTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daybrief",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total gateway tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daybrief",
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Gateway request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)

	registry.MustRegister(
		e.cycleLatency,
		e.cycleTotal,
		e.cycleActive,
		e.stageLatency,
		e.stageFallback,
		e.sourceRecords,
		e.sourceDegraded,
		e.llmTokensUsed,
		e.llmLatency,
	)

	return e
}

// RecordCycle records a completed synthesis cycle with its terminal status.
func (e *PrometheusExporter) RecordCycle(status string, latency time.Duration) {
	e.cycleTotal.WithLabelValues(status).Inc()
	e.cycleLatency.WithLabelValues(status).Observe(latency.Seconds())
}

// CycleStarted increments the in-flight cycle gauge.
func (e *PrometheusExporter) CycleStarted() {
	e.cycleActive.Inc()
}

// CycleFinished decrements the in-flight cycle gauge.
func (e *PrometheusExporter) CycleFinished() {
	e.cycleActive.Dec()
}

// RecordStage records a completed pipeline stage.
func (e *PrometheusExporter) RecordStage(stage string, latency time.Duration) {
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
}

// RecordStageFallback records a stage taking its deterministic fallback.
func (e *PrometheusExporter) RecordStageFallback(stage string) {
	e.stageFallback.WithLabelValues(stage).Inc()
}

// RecordSourceRecords records the structured records emitted by a source.
func (e *PrometheusExporter) RecordSourceRecords(sourceType string, count int) {
	e.sourceRecords.WithLabelValues(sourceType).Add(float64(count))
}

// RecordSourceDegraded records a source timeout or failure during assembly.
func (e *PrometheusExporter) RecordSourceDegraded(sourceType string) {
	e.sourceDegraded.WithLabelValues(sourceType).Inc()
}

// RecordLLMTokens records gateway token usage.
func (e *PrometheusExporter) RecordLLMTokens(model, tokenType string, count int) {
	e.llmTokensUsed.WithLabelValues(model, tokenType).Add(float64(count))
}

// RecordLLMLatency records gateway request latency.
func (e *PrometheusExporter) RecordLLMLatency(model, provider string, latency time.Duration) {
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
