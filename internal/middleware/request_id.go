package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID 请求ID使用的HTTP头
const HeaderRequestID = "X-Request-ID"

// 超长的客户端自带ID直接丢弃重新生成
const maxRequestIDLength = 128

// RequestID 为每个请求分配请求ID
// 客户端自带的 X-Request-ID 原样透传，否则生成UUID；
// ID同时写入响应头和请求上下文，贯穿日志和错误响应
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if rid == "" || len(rid) > maxRequestIDLength {
			rid = uuid.New().String()
		}

		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), rid)))
	})
}
