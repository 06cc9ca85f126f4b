package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencase/benefits-portal-api/internal/dto"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the database, and the periodic sweeps.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	sweepRuns       *prometheus.CounterVec
	sweepCases      *prometheus.CounterVec
	sweepDuration   *prometheus.HistogramVec
	syncAttempts    *prometheus.CounterVec
}

// NewMetricsService registers the portal's Prometheus collectors.
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

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Total runs of each periodic sweep",
	}, []string{"sweep"})

	sweepCases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_cases_total",
		Help: "Cases handled by sweeps, by outcome",
	}, []string{"sweep", "outcome"})

	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of sweep runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})

	syncAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "external_sync_attempts_total",
		Help: "External system submission attempts, by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dbQueryDuration,
		sweepRuns, sweepCases, sweepDuration, syncAttempts, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		dbQueryDuration: dbQueryDuration,
		sweepRuns:       sweepRuns,
		sweepCases:      sweepCases,
		sweepDuration:   sweepDuration,
		syncAttempts:    syncAttempts,
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

// ObserveSweep records one sweep run and its per-case outcomes.
func (m *MetricsService) ObserveSweep(sweep string, result *dto.SweepResult, duration time.Duration) {
	if m == nil || result == nil {
		return
	}
	m.sweepRuns.WithLabelValues(sweep).Inc()
	m.sweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	m.sweepCases.WithLabelValues(sweep, "processed").Add(float64(result.Processed))
	m.sweepCases.WithLabelValues(sweep, "skipped").Add(float64(result.Skipped))
	m.sweepCases.WithLabelValues(sweep, "failed").Add(float64(result.Failed))
}

// ObserveSyncAttempt counts one external submission attempt.
func (m *MetricsService) ObserveSyncAttempt(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.syncAttempts.WithLabelValues(result).Inc()
}
