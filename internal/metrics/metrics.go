// Package metrics exposes pipeline and HTTP metrics for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payslipx/internal/domain"
)

const namespace = "payslipx"

type Metrics struct {
	registry *prometheus.Registry

	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	extractionInFlight prometheus.Gauge
	stageDuration      *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
	llmCallsTotal      *prometheus.CounterVec
	llmCallDuration    *prometheus.HistogramVec
	llmTokensTotal     *prometheus.CounterVec
	verifications      *prometheus.CounterVec
	rateLimitDenials   *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extractions_total",
			Help:      "Extraction sessions by outcome.",
		}, []string{"outcome"}),
		extractionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extraction_duration_seconds",
			Help:      "Extraction session duration in seconds by outcome.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}, []string{"outcome"}),
		extractionInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "extractions_in_flight",
			Help:      "Number of extraction sessions running.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		llmCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by provider and status.",
		}, []string{"provider", "status"}),
		llmCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call latency in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage by direction and model.",
		}, []string{"direction", "model"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "decisions_total",
			Help:      "Second-pass decisions by mode.",
		}, []string{"mode", "decision"}),
		rateLimitDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "denials_total",
			Help:      "Rate limiter denials by reason.",
		}, []string{"reason"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.extractionsTotal,
		m.extractionDuration,
		m.extractionInFlight,
		m.stageDuration,
		m.cacheLookups,
		m.llmCallsTotal,
		m.llmCallDuration,
		m.llmTokensTotal,
		m.verifications,
		m.rateLimitDenials,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartExtraction() {
	if m == nil {
		return
	}
	m.extractionInFlight.Inc()
}

// FinishExtraction records a session outcome: completed, cached, failed or canceled.
func (m *Metrics) FinishExtraction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.extractionInFlight.Dec()
	m.extractionsTotal.WithLabelValues(outcome).Inc()
	m.extractionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) ObserveStage(stage domain.Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) LLMCall(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmCallsTotal.WithLabelValues(provider, status).Inc()
	m.llmCallDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) Tokens(model string, u *domain.TokenUsage) {
	if m == nil || u == nil {
		return
	}
	m.llmTokensTotal.WithLabelValues("input", model).Add(float64(u.InputTokens))
	m.llmTokensTotal.WithLabelValues("output", model).Add(float64(u.OutputTokens))
}

func (m *Metrics) Verification(mode domain.VerificationMode, decision domain.VerificationDecision) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(string(mode), string(decision)).Inc()
}

func (m *Metrics) RateLimitDenied(reason string) {
	if m == nil {
		return
	}
	m.rateLimitDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
