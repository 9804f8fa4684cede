// Package metrics exposes Prometheus instrumentation for the request pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	QuotaRejectionsTotal *prometheus.CounterVec
	SubmissionsTotal     *prometheus.CounterVec
	UploadBytesTotal     prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockstack_http_requests_total",
				Help: "Total number of mock API requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mockstack_http_request_duration_seconds",
				Help:    "Mock API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		QuotaRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockstack_quota_rejections_total",
				Help: "Requests rejected by the quota enforcer, by check kind",
			},
			[]string{"kind"},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mockstack_submissions_total",
				Help: "Submissions persisted, by outcome",
			},
			[]string{"outcome"},
		),
		UploadBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "mockstack_upload_bytes_total",
				Help: "Total bytes accepted through the file upload pipeline",
			},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.QuotaRejectionsTotal,
		m.SubmissionsTotal,
		m.UploadBytesTotal,
	)
	return m
}

// ObserveRequest records one completed request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveQuotaRejection records one quota rejection by check kind.
func (m *Metrics) ObserveQuotaRejection(kind string) {
	m.QuotaRejectionsTotal.WithLabelValues(kind).Inc()
}

// Handler returns an http.Handler serving the metrics in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
