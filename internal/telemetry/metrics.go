// Package telemetry holds the Prometheus metrics of the service. Every
// method is safe on a nil *Metrics, so components built without metrics
// (the CLI, most tests) just pass nil.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Derivative lookup outcomes.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	rateLimitRejected *prometheus.CounterVec
	derivativesTotal  *prometheus.CounterVec
	renderDuration    *prometheus.HistogramVec
	derivativeBytes   prometheus.Counter
	flushesTotal      prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neo_image_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neo_image_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neo_image_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		}, []string{"route"}),
		derivativesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neo_image_derivatives_total",
			Help: "Derivative lookups by outcome (hit, miss, error).",
		}, []string{"result"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "neo_image_render_duration_seconds",
			Help:    "Time spent generating a derivative, including fetch and focal detection.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"engine"}),
		derivativeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neo_image_derivative_bytes_total",
			Help: "Total bytes of generated derivatives.",
		}),
		flushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neo_image_style_flushes_total",
			Help: "Total styles flushed.",
		}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.rateLimitRejected,
		m.derivativesTotal,
		m.renderDuration,
		m.derivativeBytes,
		m.flushesTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one finished HTTP request. route must be the
// route pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	s := strconv.Itoa(status)
	m.requestTotal.WithLabelValues(method, route, s).Inc()
	m.requestDuration.WithLabelValues(method, route, s).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(route).Inc()
}

func (m *Metrics) Derivative(result string) {
	if m == nil {
		return
	}
	m.derivativesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Rendered(engine string, bytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
	m.derivativeBytes.Add(float64(bytes))
}

func (m *Metrics) Flushed(n int) {
	if m == nil {
		return
	}
	m.flushesTotal.Add(float64(n))
}
