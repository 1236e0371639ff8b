package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	drawingUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawing_uploads_total",
			Help: "Total number of drawing upload attempts",
		},
		[]string{"status"},
	)

	processCreationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_process_creations_total",
			Help: "Total number of AI processes created",
		},
	)

	ownershipDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ownership_denials_total",
			Help: "Requests rejected by the ownership or role check",
		},
		[]string{"resource"},
	)
)

// MetricsMiddleware collects Prometheus metrics for each request.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		c.Next()

		httpRequestsInFlight.Dec()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordUpload records the outcome of a drawing upload attempt.
func RecordUpload(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	drawingUploadsTotal.WithLabelValues(status).Inc()
}

// RecordProcessCreation counts a new AI process row.
func RecordProcessCreation() {
	processCreationsTotal.Inc()
}

// RecordOwnershipDenial counts a request rejected by an ownership or role
// check, labeled by the resource involved.
func RecordOwnershipDenial(resource string) {
	ownershipDenialsTotal.WithLabelValues(resource).Inc()
}
