package sentry

import (
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/aquarium/pkg/web/middleware"
)

// Middleware 上报处理器 panic 后继续向外抛出，由外层 Recovery 写 500 响应
func Middleware(c *Client) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !c.Enabled() {
			ctx.Next()
			return
		}
		defer func() {
			if v := recover(); v != nil {
				c.recovered(ctx.Request.Context(), v, map[string]string{
					"method":     ctx.Request.Method,
					"route":      ctx.FullPath(),
					"request_id": middleware.GetRequestID(ctx),
				})
				panic(v)
			}
		}()
		ctx.Next()
	}
}
