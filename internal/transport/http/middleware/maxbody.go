package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	resp "go-gin-dualstore/internal/transport/http/response"
)

const MsgBodyTooLarge = "Request body too large"

// MaxBodyBytes 声明了 Content-Length 的直接拒绝；分块上传在读取时截断，
// handler 用 BodyTooLarge 识别后同样返回 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	if n <= 0 {
		return passthrough
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Error(MsgBodyTooLarge))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func BodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
