package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	checkoutSessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Total number of checkout session attempts",
		},
		[]string{"result"},
	)

	fulfillmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_total",
			Help: "Total number of payment events processed by fulfillment",
		},
		[]string{"result"},
	)

	notificationsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"kind", "status"},
	)

	oversellAnomaliesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oversell_anomalies_total",
			Help: "Paid orders whose quantity exceeded the remaining stock",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(checkoutSessionsTotal)
	prometheus.MustRegister(fulfillmentTotal)
	prometheus.MustRegister(notificationsSentTotal)
	prometheus.MustRegister(oversellAnomaliesTotal)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RecordCheckoutSession counts session attempts by result (created, rejected, failed).
func RecordCheckoutSession(result string) {
	checkoutSessionsTotal.WithLabelValues(result).Inc()
}

// RecordFulfillment counts payment events by outcome (applied, duplicate, abandoned, failed).
func RecordFulfillment(result string) {
	fulfillmentTotal.WithLabelValues(result).Inc()
}

func RecordNotificationSent(kind, status string) {
	notificationsSentTotal.WithLabelValues(kind, status).Inc()
}

func RecordOversell() {
	oversellAnomaliesTotal.Inc()
}
