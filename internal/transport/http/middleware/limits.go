package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	resp "go-gin-dualstore/internal/transport/http/response"
)

const (
	MsgTooManyRequests = "Too many requests"
	MsgServerBusy      = "Server busy"
)

// 超过该时长没有请求的 IP 桶会被回收
const ipIdleTTL = 10 * time.Minute

func passthrough(c *gin.Context) { c.Next() }

// RateLimit 全局令牌桶；burst<=0 关闭
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	if burst <= 0 {
		return passthrough
	}
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Error(MsgTooManyRequests))
			return
		}
		c.Next()
	}
}

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type ipLimiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	buckets   map[string]*ipBucket
	lastSweep time.Time
}

func (p *ipLimiters) allow(ip string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.Sub(p.lastSweep) > ipIdleTTL {
		for k, b := range p.buckets {
			if now.Sub(b.seen) > ipIdleTTL {
				delete(p.buckets, k)
			}
		}
		p.lastSweep = now
	}
	b, ok := p.buckets[ip]
	if !ok {
		b = &ipBucket{lim: rate.NewLimiter(p.rps, p.burst)}
		p.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// RateLimitPerIP 每个客户端 IP 一个令牌桶
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	if burst <= 0 {
		return passthrough
	}
	p := &ipLimiters{rps: rps, burst: burst, buckets: map[string]*ipBucket{}, lastSweep: time.Now()}
	return func(c *gin.Context) {
		if !p.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, resp.Error(MsgTooManyRequests))
			return
		}
		c.Next()
	}
}

// ConcurrencyLimit 同时在处理的请求数上限，满了最多排队 wait；max<=0 关闭
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	if max <= 0 {
		return passthrough
	}
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			if wait <= 0 {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.Error(MsgServerBusy))
				return
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.Error(MsgServerBusy))
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
