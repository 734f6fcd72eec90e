// Package config 提供应用配置的加载与校验。
// 配置来源：环境变量，本地开发时支持从 .env 文件加载（godotenv）。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 应用基本配置
type AppConfig struct {
	Name            string        // 服务名，同时用作JWT签发者
	Env             string        // 运行环境: dev, test, prod
	Version         string        // 版本号
	Port            int           // HTTP监听端口
	RequestTimeout  time.Duration // 单个请求的超时时间
	ShutdownTimeout time.Duration // 优雅关闭的等待时间
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string // debug, info, warn, error
	Encoding string // json 或 console
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled bool
	Type    string // redis 或 memory
	TTL     time.Duration
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// RateLimitConfig 认证接口限流配置
type RateLimitConfig struct {
	Enabled  bool
	Strategy string        // token_bucket 或 fixed_window
	Rate     int64         // 窗口内允许的请求数
	Burst    int64         // 突发容量
	Window   time.Duration // 时间窗口
}

// MigrationsConfig 数据库迁移配置
type MigrationsConfig struct {
	Dir string // 迁移SQL文件目录
}

// Config 汇总所有配置项
type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	JWT        JWTConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Migrations MigrationsConfig
}

// Load 加载并校验配置
// .env 文件不存在不算错误，生产环境通常直接注入环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "library-api"),
			Env:             getEnv("APP_ENV", "dev"),
			Version:         getEnv("APP_VERSION", "0.1.0"),
			Port:            getEnvInt("APP_PORT", 8080),
			RequestTimeout:  getEnvDuration("APP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "library"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "127.0.0.1"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", false),
			Type:    getEnv("CACHE_TYPE", "memory"),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
			Strategy: getEnv("RATE_LIMIT_STRATEGY", "token_bucket"),
			Rate:     int64(getEnvInt("RATE_LIMIT_RATE", 10)),
			Burst:    int64(getEnvInt("RATE_LIMIT_BURST", 20)),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Migrations: MigrationsConfig{
			Dir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate 校验配置的合法性
func (c *Config) validate() error {
	switch c.App.Env {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("invalid APP_ENV: %s", c.App.Env)
	}

	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid APP_PORT: %d", c.App.Port)
	}

	// 生产环境必须显式配置JWT密钥
	if c.JWT.Secret == "" {
		if c.App.Env == "prod" {
			return fmt.Errorf("JWT_SECRET is required in prod")
		}
		c.JWT.Secret = "dev-insecure-secret"
	}

	return nil
}

// getEnv 读取字符串环境变量，未设置时返回默认值
func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

// getEnvInt 读取整型环境变量
func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvBool 读取布尔环境变量
func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration 读取时间间隔环境变量，如 "30s"、"5m"
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList 读取逗号分隔的列表环境变量
func getEnvList(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
