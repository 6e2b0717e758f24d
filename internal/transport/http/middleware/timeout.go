package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	resp "go-gin-dualstore/internal/transport/http/response"
)

const MsgTimeout = "Request timeout"

// Timeout 给请求上下文加截止时间，存储调用都透传这个上下文；d<=0 关闭
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return passthrough
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if TimedOut(c) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, resp.Error(MsgTimeout))
		}
	}
}

// TimedOut 请求截止时间已过；此时存储返回的错误按 504 处理而不是 500
func TimedOut(c *gin.Context) bool {
	return errors.Is(c.Request.Context().Err(), context.DeadlineExceeded)
}
