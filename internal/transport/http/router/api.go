package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-dualstore/internal/core/server"
	mdw "go-gin-dualstore/internal/transport/http/middleware"
	resp "go-gin-dualstore/internal/transport/http/response"
)

type Options struct {
	// 以下各项 <=0 表示关闭
	RPS            float64
	Burst          int
	PerIPRPS       float64
	PerIPBurst     int
	MaxConcurrent  int64
	QueueWait      time.Duration // 并发满时最多排队多久
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	AllowOrigins []string
}

func DefaultOptions() Options {
	return Options{
		RPS:            200,
		Burst:          400,
		MaxConcurrent:  300,
		QueueWait:      100 * time.Millisecond,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 10 * time.Second,
	}
}

func NewAPIEngine(l *zap.Logger, backends *Backends, o Options) *gin.Engine {
	r := server.NewRouter(o.AllowOrigins)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(o.RPS), o.Burst),
		mdw.RateLimitPerIP(rate.Limit(o.PerIPRPS), o.PerIPBurst),
		mdw.ConcurrencyLimit(o.MaxConcurrent, o.QueueWait),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.RequestTimeout),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": resp.StatusSuccess, "backends": backends.Tags()})
	})
	r.GET("/metrics", mdw.MetricsHandler())

	// /api/users/<backend>
	backends.MountAll(r.Group("/api"), l)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error("Route not found"))
	})
	return r
}
