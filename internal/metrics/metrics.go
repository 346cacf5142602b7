// Package metrics provides Prometheus metrics for annstore
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/annstore/pkg/storage"
)

// Metrics holds all Prometheus metrics for annstore
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Document lifecycle metrics
	DocumentsOpenedTotal *prometheus.CounterVec
	DocumentsClosedTotal *prometheus.CounterVec
	DegradedLinesTotal   prometheus.Counter

	// Storage metrics
	LockWaitSeconds        prometheus.Histogram
	LockTimeoutsTotal      prometheus.Counter
	IntegrityFailuresTotal prometheus.Counter

	// Edit operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	ServerStartTime time.Time
}

var _ storage.Observer = (*Metrics)(nil)

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}
	factory := promauto.With(reg)

	// gRPC request metrics
	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annstore_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annstore_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "annstore_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	// Document lifecycle metrics
	m.DocumentsOpenedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annstore_documents_opened_total",
			Help: "Total number of documents opened, by access mode",
		},
		[]string{"mode"},
	)

	m.DocumentsClosedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annstore_documents_closed_total",
			Help: "Total number of documents closed, by whether they were written",
		},
		[]string{"result"},
	)

	m.DegradedLinesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "annstore_degraded_lines_total",
			Help: "Total number of annotation lines that failed to parse on open",
		},
	)

	// Storage metrics
	m.LockWaitSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annstore_lock_wait_seconds",
			Help:    "Time spent waiting for a document write lock",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.LockTimeoutsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "annstore_lock_timeouts_total",
			Help: "Total number of writes abandoned because the lock was held",
		},
	)

	m.IntegrityFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "annstore_integrity_failures_total",
			Help: "Total number of writes rejected by the reparse self-check",
		},
	)

	// Edit operation metrics
	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annstore_operations_total",
			Help: "Total number of document edit operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annstore_operation_duration_seconds",
			Help:    "Duration of document edit operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "annstore_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// RecordGrpcRequest records a gRPC request with its status code
func (m *Metrics) RecordGrpcRequest(method string, code string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, code).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordOperation records an edit operation. It matches the annotator
// engine's OnOperation hook.
func (m *Metrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// DocumentOpened implements storage.Observer
func (m *Metrics) DocumentOpened(readOnly bool, failedLines int) {
	mode := "rw"
	if readOnly {
		mode = "ro"
	}
	m.DocumentsOpenedTotal.WithLabelValues(mode).Inc()
	m.DegradedLinesTotal.Add(float64(failedLines))
}

// DocumentClosed implements storage.Observer
func (m *Metrics) DocumentClosed(written bool) {
	result := "clean"
	if written {
		result = "written"
	}
	m.DocumentsClosedTotal.WithLabelValues(result).Inc()
}

// LockWait implements storage.Observer
func (m *Metrics) LockWait(d time.Duration) { m.LockWaitSeconds.Observe(d.Seconds()) }

// LockTimeout implements storage.Observer
func (m *Metrics) LockTimeout() { m.LockTimeoutsTotal.Inc() }

// IntegrityFailure implements storage.Observer
func (m *Metrics) IntegrityFailure() { m.IntegrityFailuresTotal.Inc() }
