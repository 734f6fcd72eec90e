package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/resp"
)

// Recovery 捕获处理链中的panic，记录堆栈并返回统一的500响应
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					reqID := RequestIDFromContext(r.Context())
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("request_id", reqID),
						zap.ByteString("stack", debug.Stack()),
					)
					resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "internal server error", reqID, "")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
