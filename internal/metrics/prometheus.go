// Package metrics provides Prometheus-based metrics collection for portsweep.
package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all portsweep metrics
	namespace = "portsweep"

	// Subsystems
	subsystemScan     = "scan"
	subsystemProbe    = "probe"
	subsystemDatabase = "database"
	subsystemWorkers  = "workers"
	subsystemSystem   = "system"
	subsystemAPI      = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	preflightErrors *prometheus.CounterVec
	activeScans     prometheus.Gauge

	// Probe metrics
	probesTotal    *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	probesInFlight prometheus.Gauge

	// Database metrics
	dbQueries       *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	// Worker pool metrics
	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobsQueued   prometheus.Gauge
	poolCapacity prometheus.Gauge

	// API metrics
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsClients    prometheus.Gauge

	// System metrics
	goroutines prometheus.Gauge
	uptime     prometheus.Gauge

	startTime  time.Time
	lastUpdate time.Time
	mu         sync.RWMutex
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
// registered on a private registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		startTime: time.Now(),
		registry:  registry,
	}

	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initDatabaseMetrics()
	pm.initWorkerMetrics()
	pm.initAPIMetrics()
	pm.initSystemMetrics()

	pm.registerMetrics()

	// Standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of finished scans by mode and final status",
		},
		[]string{"mode", "status"},
	)

	pm.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Wall clock duration of scans in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0, 1800.0},
		},
		[]string{"mode"},
	)

	pm.preflightErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "preflight_errors_total",
			Help:      "Scans rejected before any probe was sent, by error code",
		},
		[]string{"code"},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active",
			Help:      "Number of currently running scans",
		},
	)
}

func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of TCP connect probes by outcome",
		},
		[]string{"outcome"},
	)

	pm.probeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "latency_seconds",
			Help:      "Time from dial to classification of a probe",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0},
		},
		[]string{"outcome"},
	)

	pm.probesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "in_flight",
			Help:      "Number of probes currently holding a connection slot",
		},
	)
}

func (pm *PrometheusMetrics) initDatabaseMetrics() {
	pm.dbQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemDatabase,
			Name:      "queries_total",
			Help:      "Total number of database queries by operation and status",
		},
		[]string{"operation", "status"},
	)

	pm.dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemDatabase,
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"operation"},
	)
}

func (pm *PrometheusMetrics) initWorkerMetrics() {
	pm.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "jobs_total",
			Help:      "Total number of pool jobs by type and status",
		},
		[]string{"job_type", "status"},
	)

	pm.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "job_duration_seconds",
			Help:      "Duration of pool jobs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"job_type"},
	)

	pm.jobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "jobs_queued",
			Help:      "Number of jobs waiting for a worker",
		},
	)

	pm.poolCapacity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemWorkers,
			Name:      "pool_size",
			Help:      "Number of worker goroutines",
		},
	)
}

func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"method", "path"},
	)

	pm.wsClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "websocket_clients",
			Help:      "Number of connected scan stream clients",
		},
	)
}

func (pm *PrometheusMetrics) initSystemMetrics() {
	pm.goroutines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	pm.uptime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemSystem,
			Name:      "uptime_seconds",
			Help:      "Application uptime in seconds",
		},
	)
}

func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.preflightErrors,
		pm.activeScans,

		pm.probesTotal,
		pm.probeLatency,
		pm.probesInFlight,

		pm.dbQueries,
		pm.dbQueryDuration,

		pm.jobsTotal,
		pm.jobDuration,
		pm.jobsQueued,
		pm.poolCapacity,

		pm.httpRequests,
		pm.httpDuration,
		pm.wsClients,

		pm.goroutines,
		pm.uptime,
	)
}

// GetRegistry returns the Prometheus registry for the HTTP handler
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// Scan metrics

// ScanStarted marks a scan as running.
func (pm *PrometheusMetrics) ScanStarted(string) {
	pm.activeScans.Inc()
}

// ScanFinished records the final status and duration of a scan that was started.
func (pm *PrometheusMetrics) ScanFinished(mode, status string, duration time.Duration) {
	pm.activeScans.Dec()
	pm.scansTotal.WithLabelValues(mode, status).Inc()
	pm.scanDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// PreflightFailed counts a scan rejected before dispatch.
func (pm *PrometheusMetrics) PreflightFailed(code string) {
	pm.preflightErrors.WithLabelValues(code).Inc()
}

// Probe metrics

// ProbeStarted increments the in-flight gauge.
func (pm *PrometheusMetrics) ProbeStarted() {
	pm.probesInFlight.Inc()
}

// ProbeFinished decrements the in-flight gauge and records the outcome.
func (pm *PrometheusMetrics) ProbeFinished(outcome string, latency time.Duration) {
	pm.probesInFlight.Dec()
	pm.probesTotal.WithLabelValues(outcome).Inc()
	pm.probeLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

// Database metrics

// RecordDatabaseQuery records a query outcome and its duration.
func (pm *PrometheusMetrics) RecordDatabaseQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pm.dbQueries.WithLabelValues(operation, status).Inc()
	pm.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Worker pool metrics

// JobQueued increments the queued job gauge.
func (pm *PrometheusMetrics) JobQueued() {
	pm.jobsQueued.Inc()
}

// JobFinished records a finished pool job that had been queued.
func (pm *PrometheusMetrics) JobFinished(jobType string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pm.jobsQueued.Dec()
	pm.jobsTotal.WithLabelValues(jobType, status).Inc()
	pm.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// SetPoolSize records the number of pool workers.
func (pm *PrometheusMetrics) SetPoolSize(size int) {
	pm.poolCapacity.Set(float64(size))
}

// API metrics

// RecordHTTPRequest records a served HTTP request.
func (pm *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, path, status).Inc()
	pm.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// AddWebSocketClients adjusts the connected stream client gauge by delta.
func (pm *PrometheusMetrics) AddWebSocketClients(delta int) {
	pm.wsClients.Add(float64(delta))
}

// System metrics

// UpdateSystemMetrics updates all system metrics with current values
func (pm *PrometheusMetrics) UpdateSystemMetrics() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.goroutines.Set(float64(runtime.NumGoroutine()))
	pm.uptime.Set(time.Since(pm.startTime).Seconds())
	pm.lastUpdate = time.Now()
}

// GetUptime returns the application uptime
func (pm *PrometheusMetrics) GetUptime() time.Duration {
	return time.Since(pm.startTime)
}

// GetLastUpdate returns the last system metrics update time
func (pm *PrometheusMetrics) GetLastUpdate() time.Time {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.lastUpdate
}

// StartPeriodicUpdates updates system metrics every interval until ctx is done.
func (pm *PrometheusMetrics) StartPeriodicUpdates(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.UpdateSystemMetrics()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.UpdateSystemMetrics()
		}
	}
}

// Global instance for easy access
var (
	globalMetrics *PrometheusMetrics
	metricsOnce   sync.Once
)

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
