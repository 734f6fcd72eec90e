package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/resp"
	"github.com/MorseWayne/library_api/internal/service"
)

// AuthMiddleware JWT认证中间件
// 验证请求头中的JWT令牌，并将用户信息注入到请求上下文中
func AuthMiddleware(jwtService service.JWTService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())

			tokenString, ok := bearerToken(r)
			if !ok {
				logger.Warn("missing or malformed authorization header", zap.String("request_id", reqID))
				resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authorization required", reqID, "")
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Warn("token validation failed",
					zap.String("request_id", reqID),
					zap.Error(err),
				)

				switch err {
				case service.ErrTokenExpired:
					resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "token expired", reqID, "")
				case service.ErrTokenNotReady:
					resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "token not ready", reqID, "")
				default:
					resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "invalid token", reqID, "")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), userFromClaims(claims))))
		})
	}
}

// RequireRole 角色授权中间件
// 要求用户具有指定角色才能访问受保护的资源
func RequireRole(requiredRole domain.UserRole, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())
			user := UserFromContext(r.Context())

			// AuthMiddleware 应该已经注入用户
			if user == nil {
				logger.Error("user not found in context", zap.String("request_id", reqID))
				resp.Error(w, http.StatusUnauthorized, resp.CodeInternalError, "authentication required", reqID, "")
				return
			}

			if user.Role != requiredRole {
				logger.Warn("insufficient permissions",
					zap.String("request_id", reqID),
					zap.Int64("user_id", user.ID),
					zap.String("user_role", string(user.Role)),
					zap.String("required_role", string(requiredRole)),
				)
				resp.Error(w, http.StatusForbidden, resp.CodeInvalidParam, "insufficient permissions", reqID, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin 管理员权限中间件
// 这是RequireRole的便捷包装，要求用户具有管理员角色
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(domain.UserRoleAdmin, logger)
}

// ContextWithUser 将用户信息注入请求上下文
func ContextWithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// UserFromContext 从请求上下文中获取当前用户信息
func UserFromContext(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}

// OptionalAuth 可选认证中间件
// 如果存在有效的Authorization头则验证并注入用户信息，否则继续处理请求
// 适用于推荐等既支持匿名访问又支持认证访问的端点
func OptionalAuth(jwtService service.JWTService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())

			tokenString, ok := bearerToken(r)
			if !ok {
				// 没有或格式不对的认证头，匿名继续
				next.ServeHTTP(w, r)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				logger.Debug("optional auth token validation failed",
					zap.String("request_id", reqID),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), userFromClaims(claims))))
		})
	}
}

// bearerToken 从Authorization头提取Bearer令牌
func bearerToken(r *http.Request) (string, bool) {
	const bearerPrefix = "Bearer "

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", false
	}

	return token, true
}

// userFromClaims 从令牌声明重建用户对象
// 有效令牌视作活跃用户
func userFromClaims(claims *service.Claims) *domain.User {
	return &domain.User{
		ID:       claims.UserID,
		Name:     claims.Name,
		Role:     claims.Role,
		IsActive: true,
	}
}
