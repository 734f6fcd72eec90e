// Package limiter 提供基于Redis的分布式限流，用于保护登录等敏感接口。
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimitResult 限流结果
type LimitResult struct {
	Allowed    bool          `json:"allowed"`     // 是否允许通过
	Remaining  int64         `json:"remaining"`   // 剩余配额
	RetryAfter time.Duration `json:"retry_after"` // 建议重试时间
}

// Limiter 限流器接口
type Limiter interface {
	// Allow 检查是否允许请求通过
	Allow(ctx context.Context, key string) (*LimitResult, error)

	// AllowN 检查是否允许N个请求通过
	AllowN(ctx context.Context, key string, n int64) (*LimitResult, error)

	// Reset 重置限流状态
	Reset(ctx context.Context, key string) error
}

// Config 限流配置
type Config struct {
	Rate      int64         `json:"rate"`       // 速率（请求数/时间窗口）
	Window    time.Duration `json:"window"`     // 时间窗口
	Burst     int64         `json:"burst"`      // 突发容量（令牌桶）
	KeyPrefix string        `json:"key_prefix"` // Key前缀
}

// evalLimitScript 执行限流Lua脚本并解析返回值
// 所有限流脚本统一返回 {allowed, remaining, retry_after_seconds}
func evalLimitScript(ctx context.Context, client redis.Cmdable, script string, keys []string, args ...interface{}) (*LimitResult, error) {
	result := client.Eval(ctx, script, keys, args...)
	if result.Err() != nil {
		return nil, fmt.Errorf("eval limit script: %w", result.Err())
	}

	values, ok := result.Val().([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("unexpected limit script result: %v", result.Val())
	}

	allowed, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	retryAfter, ok3 := values[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unexpected limit script result types: %v", values)
	}

	return &LimitResult{
		Allowed:    allowed == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(retryAfter) * time.Second,
	}, nil
}
