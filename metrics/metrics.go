package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couplet_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "couplet_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// EnvelopeCodes counts non-zero envelope codes; HTTP status is always 200 for those
	EnvelopeCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couplet_envelope_errors_total",
			Help: "Responses carrying a non-zero envelope code",
		},
		[]string{"endpoint", "code"},
	)

	VendorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "couplet_vendor_latency_seconds",
			Help:    "Latency of calls to external vendors",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30},
		},
		[]string{"vendor", "op"},
	)

	VendorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "couplet_vendor_errors_total",
			Help: "Failed calls to external vendors by failure kind",
		},
		[]string{"vendor", "op", "kind"},
	)

	EvaluationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "couplet_evaluation_fallbacks_total",
			Help: "Evaluations whose model output could not be parsed even after repair",
		},
	)

	KnowledgeBaseEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "couplet_knowledge_base_entries",
			Help: "Number of couplet pairs in the loaded knowledge base",
		},
	)
)

// ObserveVendor records one vendor call. kind is "" on success.
func ObserveVendor(vendor, op string, start time.Time, kind string) {
	VendorLatency.WithLabelValues(vendor, op).Observe(time.Since(start).Seconds())
	if kind != "" {
		VendorErrors.WithLabelValues(vendor, op, kind).Inc()
	}
}

// ObserveEnvelope records a non-zero envelope code for endpoint
func ObserveEnvelope(endpoint string, code int) {
	if code != 0 {
		EnvelopeCodes.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}

// GinMiddleware records request counts and latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RequestCount.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
