// Package metrics provides the Prometheus collectors for the catalog server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "byggekatalog"

// Evaluation results.
const (
	ResultEligible = "eligible"
	ResultRejected = "rejected"
)

// Load and save outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
	OutcomeLimited = "rate_limited"
)

// Metrics holds the server's collectors on a dedicated registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	evaluations   *prometheus.CounterVec
	catalogLoads  *prometheus.CounterVec
	catalogSize   prometheus.Gauge
	adminSaves    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Products evaluated by the rule engine, by result",
		}, []string{"result"}),
		catalogLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_load_total",
			Help:      "Catalog load attempts per source tier",
		}, []string{"source", "outcome"}),
		catalogSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products",
			Help:      "Number of products currently loaded",
		}),
		adminSaves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_saves_total",
			Help:      "Admin catalog save requests, by outcome",
		}, []string{"outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		httpDurations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Evaluations records the outcome of one filter pass.
func (m *Metrics) Evaluations(eligible, rejected int) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(ResultEligible).Add(float64(eligible))
	m.evaluations.WithLabelValues(ResultRejected).Add(float64(rejected))
}

// CatalogLoad records one attempt against a load tier.
func (m *Metrics) CatalogLoad(source, outcome string) {
	if m == nil {
		return
	}
	m.catalogLoads.WithLabelValues(source, outcome).Inc()
}

// CatalogSize sets the number of loaded products.
func (m *Metrics) CatalogSize(n int) {
	if m == nil {
		return
	}
	m.catalogSize.Set(float64(n))
}

// AdminSave records an admin save request.
func (m *Metrics) AdminSave(outcome string) {
	if m == nil {
		return
	}
	m.adminSaves.WithLabelValues(outcome).Inc()
}

// HTTPRequest records a served request.
func (m *Metrics) HTTPRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDurations.WithLabelValues(route).Observe(d.Seconds())
}
