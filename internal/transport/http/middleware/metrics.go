package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-gin-dualstore/internal/domain"
)

const metricsNamespace = "users_api"

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"path", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"path", "method"},
	)
	// 路由里已带后端标签（/api/users/mongo/:id），按错误类别再细分
	httpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: metricsNamespace, Name: "http_errors_total", Help: "Failed user operations by route and error kind"},
		[]string{"path", "kind"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpErrors) }

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// 未匹配路由统一一个 label，避免基数爆炸
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		for _, e := range c.Errors {
			httpErrors.WithLabelValues(path, domain.KindOf(e.Err).String()).Inc()
		}
	}
}

func MetricsHandler() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
