// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/api"
	"github.com/MorseWayne/library_api/internal/config"
	"github.com/MorseWayne/library_api/internal/limiter"
	"github.com/MorseWayne/library_api/internal/middleware"
	"github.com/MorseWayne/library_api/internal/resp"
	"github.com/MorseWayne/library_api/internal/service"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	UserHandler           *api.UserHandler
	AuthorHandler         *api.AuthorHandler
	CategoryHandler       *api.CategoryHandler
	BookHandler           *api.BookHandler
	LoanHandler           *api.LoanHandler
	RecommendationHandler *api.RecommendationHandler
	JWTService            service.JWTService

	// AuthLimiter 为nil时不对认证接口限流
	AuthLimiter limiter.Limiter
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件
// 恢复、超时、CORS、访问日志等横切中间件由外层的标准库
// 中间件链统一处理（见 cmd/library-server），这里只挂认证和限流
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.cfg = cfg
	r.deps = deps
	r.logger = lg

	r.setupRoutes()

	return r.engine
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes() {
	// 健康检查
	r.engine.GET("/healthz", r.healthCheck)

	auth := r.authMiddleware()
	admin := r.adminMiddleware()
	optional := r.optionalAuthMiddleware()

	// API v1 路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证路由（无需认证，可选限流）
		authGroup := v1.Group("/auth")
		if r.deps.AuthLimiter != nil {
			authGroup.Use(limiter.RateLimitMiddleware(r.deps.AuthLimiter, limiter.IPKeyGenerator("auth")))
		}
		{
			authGroup.POST("/register", r.wrapHandler(r.deps.UserHandler.Register))
			authGroup.POST("/login", r.wrapHandler(r.deps.UserHandler.Login))
			authGroup.POST("/refresh", r.wrapHandler(r.deps.UserHandler.RefreshToken))
		}

		// 用户路由（需要认证）
		users := v1.Group("/users")
		users.Use(auth)
		{
			users.GET("/profile", r.wrapHandler(r.deps.UserHandler.GetProfile))
		}

		// 作者路由：读公开，写需要管理员
		authors := v1.Group("/authors")
		{
			authors.GET("", r.wrapHandler(r.deps.AuthorHandler.ListAuthors))
			authors.GET("/:id", r.wrapHandler(r.deps.AuthorHandler.GetAuthor))
			authors.POST("", auth, admin, r.wrapHandler(r.deps.AuthorHandler.CreateAuthor))
			authors.PUT("/:id", auth, admin, r.wrapHandler(r.deps.AuthorHandler.UpdateAuthor))
			authors.DELETE("/:id", auth, admin, r.wrapHandler(r.deps.AuthorHandler.DeleteAuthor))
		}

		// 分类路由：读公开，写需要管理员
		categories := v1.Group("/categories")
		{
			categories.GET("", r.wrapHandler(r.deps.CategoryHandler.ListCategories))
			categories.GET("/:id", r.wrapHandler(r.deps.CategoryHandler.GetCategory))
			categories.POST("", auth, admin, r.wrapHandler(r.deps.CategoryHandler.CreateCategory))
			categories.PUT("/:id", auth, admin, r.wrapHandler(r.deps.CategoryHandler.UpdateCategory))
			categories.DELETE("/:id", auth, admin, r.wrapHandler(r.deps.CategoryHandler.DeleteCategory))
		}

		// 图书路由：读公开，写需要管理员
		books := v1.Group("/books")
		{
			books.GET("", r.wrapHandler(r.deps.BookHandler.ListBooks))
			books.GET("/:id", r.wrapHandler(r.deps.BookHandler.GetBook))
			books.POST("", auth, admin, r.wrapHandler(r.deps.BookHandler.CreateBook))
			books.PUT("/:id", auth, admin, r.wrapHandler(r.deps.BookHandler.UpdateBook))
			books.DELETE("/:id", auth, admin, r.wrapHandler(r.deps.BookHandler.DeleteBook))
		}

		// 借阅路由（需要认证；处理器内部区分普通用户和管理员）
		loans := v1.Group("/loans")
		loans.Use(auth)
		{
			loans.POST("", r.wrapHandler(r.deps.LoanHandler.CreateLoan))
			loans.GET("", r.wrapHandler(r.deps.LoanHandler.ListLoans))
			loans.GET("/:id", r.wrapHandler(r.deps.LoanHandler.GetLoan))
			loans.PUT("/:id", admin, r.wrapHandler(r.deps.LoanHandler.UpdateLoan))
			loans.POST("/:id/return", r.wrapHandler(r.deps.LoanHandler.ReturnLoan))
			loans.POST("/:id/overdue", admin, r.wrapHandler(r.deps.LoanHandler.MarkOverdue))
		}

		// 推荐路由
		recommendations := v1.Group("/recommendations")
		{
			recommendations.GET("", auth, r.wrapHandler(r.deps.RecommendationHandler.GetRecommendations))
			recommendations.GET("/preferences", auth, r.wrapHandler(r.deps.RecommendationHandler.GetPreferences))
			recommendations.GET("/category/:id", optional, r.wrapHandler(r.deps.RecommendationHandler.RecommendByCategory))
			recommendations.GET("/author/:id", optional, r.wrapHandler(r.deps.RecommendationHandler.RecommendByAuthor))
		}

		// 管理员路由（需要认证+管理员权限）
		adminGroup := v1.Group("/admin")
		adminGroup.Use(auth, admin)
		{
			// 用户管理
			adminUsers := adminGroup.Group("/users")
			{
				adminUsers.GET("", r.wrapHandler(r.deps.UserHandler.ListUsers))
				adminUsers.PUT("/role", r.wrapHandler(r.deps.UserHandler.UpdateUserRole))
				adminUsers.PUT("/status", r.wrapHandler(r.deps.UserHandler.UpdateUserStatus))
			}

			// 借阅监控
			adminLoans := adminGroup.Group("/loans")
			{
				adminLoans.GET("/overdue", r.wrapHandler(r.deps.LoanHandler.ListOverdueLoans))
				adminLoans.POST("/overdue/sweep", r.wrapHandler(r.deps.LoanHandler.SweepOverdueLoans))
				adminLoans.GET("/stats", r.wrapHandler(r.deps.LoanHandler.GetLoanStats))
			}
		}
	}
}

// healthCheck 健康检查处理器
func (r *GinRouter) healthCheck(c *gin.Context) {
	data := map[string]any{
		"status":  "ok",
		"version": r.cfg.App.Version,
	}
	resp.OK(c.Writer, &data, middleware.RequestIDFromContext(c.Request.Context()), "")
}

// wrapHandler 将标准的 http.HandlerFunc 包装为 gin.HandlerFunc
func (r *GinRouter) wrapHandler(handler func(http.ResponseWriter, *http.Request)) gin.HandlerFunc {
	return gin.WrapF(handler)
}

// adaptMiddleware 将标准库风格的中间件适配为 gin.HandlerFunc
// 内层中间件拒绝请求时（next未被调用），终止gin处理链
func adaptMiddleware(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			passed = true
			// 中间件可能往context里注入了用户信息，带回gin的请求对象
			c.Request = req
			c.Next()
		})

		mw(next).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

// authMiddleware JWT认证中间件
func (r *GinRouter) authMiddleware() gin.HandlerFunc {
	return adaptMiddleware(middleware.AuthMiddleware(r.deps.JWTService, r.logger))
}

// adminMiddleware 管理员权限中间件，必须挂在authMiddleware之后
func (r *GinRouter) adminMiddleware() gin.HandlerFunc {
	return adaptMiddleware(middleware.RequireAdmin(r.logger))
}

// optionalAuthMiddleware 可选认证中间件：令牌有效时注入用户，无令牌时放行
func (r *GinRouter) optionalAuthMiddleware() gin.HandlerFunc {
	return adaptMiddleware(middleware.OptionalAuth(r.deps.JWTService, r.logger))
}
