// Package limiter 限流中间件实现
package limiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MorseWayne/library_api/internal/resp"
)

// KeyGenerator 从请求生成限流Key
type KeyGenerator func(*gin.Context) string

// IPKeyGenerator 基于客户端IP的Key生成器
// 登录接口在用户认证前执行，只能按IP限流
func IPKeyGenerator(prefix string) KeyGenerator {
	return func(c *gin.Context) string {
		return fmt.Sprintf("%s:ip:%s", prefix, c.ClientIP())
	}
}

// RateLimitMiddleware 创建限流中间件
// 限流服务自身故障时放行请求，可用性优先于限流精度
func RateLimitMiddleware(l Limiter, keyGen KeyGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := l.Allow(ctx, keyGen(c))
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
			}
			requestID := c.Writer.Header().Get("X-Request-ID")
			resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeInvalidParam,
				"too many requests", requestID, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
