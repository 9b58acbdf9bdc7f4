package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pestRecordsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pest_records_total",
		Help: "Last issued id per registry (facility, technician).",
	}, []string{"kind"})

	pestRegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pest_registrations_total",
		Help: "Successful registrations by kind.",
	}, []string{"kind"})

	pestVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pest_verification_checks_total",
		Help: "Technician verification checks by result.",
	}, []string{"result"})

	pestRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pest_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	pestRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pest_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	pestHealthChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pest_health_checks_total",
		Help: "Total readiness probes by result.",
	}, []string{"result"})

	pestLedgerEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pest_ledger_entries_total",
		Help: "Total audit ledger entries appended.",
	})

	pestEventDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pest_event_deliveries_total",
		Help: "Lifecycle event deliveries by sink and status.",
	}, []string{"sink", "status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		pestRequestsTotal.WithLabelValues(method, path, status).Inc()
		pestRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordHealthCheck records a readiness probe result.
func RecordHealthCheck(success bool) {
	pestHealthChecksTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordLedgerAppend records an audit ledger append.
func RecordLedgerAppend() {
	pestLedgerEntriesTotal.Inc()
}

// RecordEventDelivery records a lifecycle event delivery attempt. Its
// signature matches events.MetricsRecorder.
func RecordEventDelivery(sink string, success bool) {
	pestEventDeliveriesTotal.WithLabelValues(sink, outcome(success)).Inc()
}

// RecordRegistration counts a successful facility or technician registration.
func RecordRegistration(kind string) {
	pestRegistrationsTotal.WithLabelValues(kind).Inc()
}

// RecordVerification counts an IsVerified answer.
func RecordVerification(verified bool) {
	if verified {
		pestVerificationsTotal.WithLabelValues("verified").Inc()
	} else {
		pestVerificationsTotal.WithLabelValues("unverified").Inc()
	}
}

// SetRecordsGauge sets the record count gauge for a registry.
func SetRecordsGauge(kind string, count float64) {
	pestRecordsTotal.WithLabelValues(kind).Set(count)
}
