package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestDuration    *prometheus.HistogramVec
	requestTotal       *prometheus.CounterVec
	dbQueryDuration    *prometheus.HistogramVec
	reportsGenerated   *prometheus.CounterVec
	credentialsIssued  prometheus.Counter
	loginFailures      *prometheus.CounterVec
	rosterBatchQueries prometheus.Counter
	cacheLookups       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	reportsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_reports_generated_total",
		Help: "Attendance reports generated by view and format",
	}, []string{"view", "format"})

	credentialsIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "student_credentials_issued_total",
		Help: "Student credential pairs generated",
	})

	loginFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_login_failures_total",
		Help: "Failed login attempts by subject kind",
	}, []string{"kind"})

	rosterBatchQueries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roster_batch_queries_total",
		Help: "Batched student lookups issued while resolving rosters",
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration, reportsGenerated, credentialsIssued, loginFailures, rosterBatchQueries, cacheLookups, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		dbQueryDuration:    dbQueryDuration,
		reportsGenerated:   reportsGenerated,
		credentialsIssued:  credentialsIssued,
		loginFailures:      loginFailures,
		rosterBatchQueries: rosterBatchQueries,
		cacheLookups:       cacheLookups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordReport counts a generated report.
func (m *MetricsService) RecordReport(view, format string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(view, format).Inc()
}

// RecordCredentials counts issued credential pairs.
func (m *MetricsService) RecordCredentials(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.credentialsIssued.Add(float64(n))
}

// RecordLoginFailure counts a rejected login.
func (m *MetricsService) RecordLoginFailure(kind string) {
	if m == nil {
		return
	}
	m.loginFailures.WithLabelValues(kind).Inc()
}

// RecordRosterBatch counts one batched student lookup.
func (m *MetricsService) RecordRosterBatch() {
	if m == nil {
		return
	}
	m.rosterBatchQueries.Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
