package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AIRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of successful AI completion calls",
		},
	)

	AIRequestErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_request_errors_total",
			Help: "Total number of failed AI completion calls",
		},
	)

	QuestionsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "questions_generated_total",
			Help: "Total number of test questions minted by the AI generator",
		},
	)

	TestSessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "test_sessions_started_total",
			Help: "Total number of placement test sessions started",
		},
	)

	TestSessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "test_sessions_completed_total",
			Help: "Total number of placement test sessions completed",
		},
	)

	BlocksGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lesson_blocks_generated_total",
			Help: "Total number of lesson blocks generated",
		},
	)

	BlockGenerationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lesson_block_generation_seconds",
			Help:    "Wall time of the full lesson block generation pipeline",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240},
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestErrors)
	prometheus.MustRegister(QuestionsGenerated)
	prometheus.MustRegister(TestSessionsStarted)
	prometheus.MustRegister(TestSessionsCompleted)
	prometheus.MustRegister(BlocksGenerated)
	prometheus.MustRegister(BlockGenerationDuration)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
