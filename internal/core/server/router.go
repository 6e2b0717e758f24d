package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 裸 engine + CORS；其余中间件由调用方按需挂载
func NewRouter(allowOrigins []string) *gin.Engine {
	r := gin.New()
	if len(allowOrigins) == 0 {
		r.Use(cors.Default())
		return r
	}
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = allowOrigins
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AddAllowHeaders("X-Request-ID")
	cfg.AddExposeHeaders("X-Request-ID")
	r.Use(cors.New(cfg))
	return r
}
