// Package obs holds the Prometheus collectors for the pipeline, the
// scheduler and the read API.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tripsniper"

type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	ItemsTotal          *prometheus.CounterVec
	RunsTotal           *prometheus.CounterVec
	RunDuration         prometheus.Histogram
	RunRetriesTotal     prometheus.Counter
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	Registry            *prometheus.Registry
}

// NewMetrics creates the collectors and registers them on r.
func NewMetrics(r *prometheus.Registry) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetches_total",
			Help:      "Source lookups by outcome (ok, transient_error, permanent_error, error)",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "Source lookup latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_items_total",
			Help:      "Combined offers by outcome",
		}, []string{"status"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of one pipeline run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		RunRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_run_retries_total",
			Help:      "Scheduled runs retried after a failure",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		Registry: r,
	}

	r.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.ItemsTotal,
		m.RunsTotal,
		m.RunDuration,
		m.RunRetriesTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)
	return m
}

// ObserveFetch implements pipeline.Metrics
func (m *Metrics) ObserveFetch(source, outcome string, elapsed time.Duration) {
	m.FetchesTotal.WithLabelValues(source, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveItem implements pipeline.Metrics
func (m *Metrics) ObserveItem(status string) {
	m.ItemsTotal.WithLabelValues(status).Inc()
}

// ObserveRun implements pipeline.Metrics
func (m *Metrics) ObserveRun(status string, elapsed time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}

// IncRunRetries implements scheduler.Metrics
func (m *Metrics) IncRunRetries() { m.RunRetriesTotal.Inc() }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// =============================================================================
// HTTP middleware
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, Status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(rec.Status)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
