package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the OCR service
type Metrics struct {
	gatherer prometheus.Gatherer

	// OCR metrics
	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	keywordSearches    *prometheus.CounterVec
	exportsTotal       *prometheus.CounterVec
	activeSessions     prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		extractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocrweb_extractions_total",
				Help: "Total number of OCR extractions by engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
		extractionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocrweb_extraction_duration_seconds",
				Help:    "OCR extraction latency in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"engine"},
		),
		keywordSearches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocrweb_keyword_searches_total",
				Help: "Total number of keyword searches by result",
			},
			[]string{"found"},
		),
		exportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocrweb_exports_total",
				Help: "Total number of exported files by format",
			},
			[]string{"format"},
		),
		activeSessions: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ocrweb_sessions_active",
				Help: "Current number of live sessions",
			},
		),
		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocrweb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocrweb_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocrweb_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),
	}
}

// ObserveExtraction records one finished pipeline run.
func (m *Metrics) ObserveExtraction(engine, outcome string, duration time.Duration) {
	m.extractionsTotal.WithLabelValues(engine, outcome).Inc()
	m.extractionDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSearch(found bool) {
	m.keywordSearches.WithLabelValues(strconv.FormatBool(found)).Inc()
}

func (m *Metrics) ObserveExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// ObserveRequest records one served HTTP request. path should be the route
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration, written int64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(written))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
