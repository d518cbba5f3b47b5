package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login outcomes: success, failure, throttled.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome.",
	}, []string{"outcome"})

	// AttendanceWrites counts attendance upserts: created, updated, rejected.
	AttendanceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "academy",
		Name:      "attendance_writes_total",
		Help:      "Attendance upserts by outcome.",
	}, []string{"outcome"})

	// ReportDuration observes report computation time by report name.
	ReportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "academy",
		Name:      "report_duration_seconds",
		Help:      "Time spent building reports.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"report"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "academy",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// ObserveReport records how long a report took since start.
func ObserveReport(name string, start time.Time) {
	ReportDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// GinMiddleware records request latency keyed by the matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
