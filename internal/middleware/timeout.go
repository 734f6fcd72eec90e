package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MorseWayne/library_api/internal/resp"
)

// Timeout 超过给定时长后中断处理并返回统一的超时响应
// 基于 http.TimeoutHandler，超时后对处理器的写入会被丢弃，
// 客户端收到503和固定的超时信封
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(&resp.Body{
		Code:    resp.CodeTimeout,
		Message: "request timeout",
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
	}
}
