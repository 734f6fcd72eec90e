// Package middleware 提供HTTP中间件：请求ID、恢复、超时、CORS、访问日志和JWT认证。
package middleware

import "context"

// contextKey 是中间件私有的上下文键类型，避免与其他包的键冲突
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUser      contextKey = "user"
)

// withRequestID 将请求ID写入上下文
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext 从上下文读取请求ID，没有时返回空串
func RequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return s
	}
	return ""
}
