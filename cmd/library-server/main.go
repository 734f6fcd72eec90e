package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/api"
	"github.com/MorseWayne/library_api/internal/cache"
	"github.com/MorseWayne/library_api/internal/config"
	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/limiter"
	"github.com/MorseWayne/library_api/internal/logger"
	mw "github.com/MorseWayne/library_api/internal/middleware"
	"github.com/MorseWayne/library_api/internal/repo"
	"github.com/MorseWayne/library_api/internal/router"
	"github.com/MorseWayne/library_api/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
// 迁移在HTTP服务器启动前执行，处理请求时数据库结构已就绪
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例
// Redis不可用时降级为内存缓存，缓存关闭时使用空实现
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			lg.Sugar().Infow("cache enabled", "type", "memory (fallback)", "ttl", cfg.Cache.TTL)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr, "ttl", cfg.Cache.TTL)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
}

// initAuthLimiter 初始化认证接口限流器
// 限流状态存在Redis里，Redis不可用时跳过限流
func initAuthLimiter(cfg *config.Config, cacheInstance cache.Cache, lg *zap.Logger) limiter.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	redisCache, ok := cacheInstance.(*cache.RedisCache)
	if !ok {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		rc, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("rate limiting requires Redis, disabled", "error", err)
			return nil
		}
		redisCache = rc
	}

	lg.Sugar().Infow("auth rate limiting enabled",
		"strategy", cfg.RateLimit.Strategy,
		"rate", cfg.RateLimit.Rate, "burst", cfg.RateLimit.Burst, "window", cfg.RateLimit.Window)

	limiterCfg := &limiter.Config{
		Rate:   cfg.RateLimit.Rate,
		Burst:  cfg.RateLimit.Burst,
		Window: cfg.RateLimit.Window,
	}

	switch cfg.RateLimit.Strategy {
	case "fixed_window":
		return limiter.NewFixedWindowLimiter(redisCache.Client(), limiterCfg)
	default:
		return limiter.NewTokenBucketLimiter(redisCache.Client(), limiterCfg)
	}
}

// initDependencies 初始化应用依赖（仓储、服务、处理器）
func initDependencies(cfg *config.Config, db *database.DB, cacheInstance cache.Cache, lg *zap.Logger) *router.Dependencies {
	// 依赖注入链：仓储 -> 服务 -> API处理器
	userRepo := repo.NewUserRepository(db)
	userService := service.NewUserService(userRepo, lg)
	jwtService := service.NewJWTService(cfg, lg)
	userHandler := api.NewUserHandler(userService, jwtService, lg)

	authorRepo := repo.NewAuthorRepository(db)
	categoryRepo := repo.NewCategoryRepository(db)
	loanRepo := repo.NewLoanRepository(db)
	recRepo := repo.NewRecommendationRepository(db)

	// 图书仓储可选缓存装饰器
	// 借阅创建/归还会改库存，装饰器暴露的失效入口交给借阅服务
	baseBookRepo := repo.NewBookRepository(db)
	var bookRepo repo.BookRepository
	var invalidator service.BookCacheInvalidator
	if cfg.Cache.Enabled {
		cachedBookRepo := repo.NewCachedBookRepository(baseBookRepo, cacheInstance, cfg.Cache.TTL)
		bookRepo = cachedBookRepo
		invalidator = cachedBookRepo
	} else {
		bookRepo = baseBookRepo
	}

	authorService := service.NewAuthorService(authorRepo, bookRepo, lg)
	categoryService := service.NewCategoryService(categoryRepo, bookRepo, lg)
	bookService := service.NewBookService(bookRepo, categoryRepo, authorRepo, loanRepo, lg)
	loanService := service.NewLoanService(loanRepo, userRepo, bookRepo, invalidator, lg)
	recommendationService := service.NewRecommendationService(recRepo, userRepo, lg)

	return &router.Dependencies{
		UserHandler:           userHandler,
		AuthorHandler:         api.NewAuthorHandler(authorService, lg),
		CategoryHandler:       api.NewCategoryHandler(categoryService, lg),
		BookHandler:           api.NewBookHandler(bookService, lg),
		LoanHandler:           api.NewLoanHandler(loanService, lg),
		RecommendationHandler: api.NewRecommendationHandler(recommendationService, lg),
		JWTService:            jwtService,
	}
}

// setupHandler 组装路由和中间件链
// 请求进入时执行顺序为 access log → CORS → timeout → recovery → request ID → 路由
func setupHandler(cfg *config.Config, deps *router.Dependencies, lg *zap.Logger) http.Handler {
	handler := router.New().Setup(cfg, deps, lg)

	handler = mw.RequestID(handler)
	handler = mw.Recovery(lg)(handler)
	handler = mw.Timeout(cfg.App.RequestTimeout)(handler)
	handler = mw.CORS(cfg.CORS)(handler)
	handler = mw.AccessLog(lg)(handler)

	return handler
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	cacheInstance := initCache(cfg, lg)

	deps := initDependencies(cfg, db, cacheInstance, lg)
	deps.AuthLimiter = initAuthLimiter(cfg, cacheInstance, lg)

	handler := setupHandler(cfg, deps, lg)

	startServer(cfg, handler, lg)
}
