package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quietdash"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	waitlistSignups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waitlist",
			Name:      "signups_total",
			Help:      "Waitlist join attempts by outcome.",
		},
		[]string{"outcome"},
	)

	waitlistVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "waitlist",
			Name:      "verifications_total",
			Help:      "Waitlist verifications by outcome.",
		},
		[]string{"outcome"},
	)

	emailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "email",
			Name:      "deliveries_total",
			Help:      "Transactional email operations by kind and result.",
		},
		[]string{"kind", "success"},
	)

	displayRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "display",
			Name:      "renders_total",
			Help:      "Display images served, split by cache hit.",
		},
		[]string{"cached"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		waitlistSignups,
		waitlistVerifications,
		emailDeliveries,
		displayRenders,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordWaitlistSignup counts a join attempt. Outcome is one of created, resent, already or failed.
func RecordWaitlistSignup(outcome string) {
	waitlistSignups.WithLabelValues(outcome).Inc()
}

// RecordWaitlistVerification counts a verification. Outcome is one of verified, already or invalid.
func RecordWaitlistVerification(outcome string) {
	waitlistVerifications.WithLabelValues(outcome).Inc()
}

// RecordEmail counts a delivery or audience operation.
func RecordEmail(kind string, success bool) {
	emailDeliveries.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

// RecordDisplayRender counts a served display image.
func RecordDisplayRender(cached bool) {
	displayRenders.WithLabelValues(strconv.FormatBool(cached)).Inc()
}
