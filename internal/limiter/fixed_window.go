// Package limiter 固定窗口限流器实现
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindowLimiter 固定窗口限流器
// 实现简单、开销最低，窗口边界可能放过突发流量，
// 对登录这类低频接口足够
type FixedWindowLimiter struct {
	client    redis.Cmdable
	config    *Config
	keyPrefix string
}

// NewFixedWindowLimiter 创建固定窗口限流器
func NewFixedWindowLimiter(client redis.Cmdable, config *Config) *FixedWindowLimiter {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "limiter:fw"
	}

	return &FixedWindowLimiter{
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}
}

// Redis Lua脚本：固定窗口计数
const fixedWindowScript = `
-- KEYS[1]: 窗口key
-- ARGV[1]: 限流阈值
-- ARGV[2]: 窗口长度(秒)
-- ARGV[3]: 请求数

local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local n = tonumber(ARGV[3])

local current = tonumber(redis.call('GET', key) or '0')

if current + n > limit then
    local ttl = redis.call('TTL', key)
    if ttl < 0 then
        ttl = window
    end
    return {0, math.max(0, limit - current), ttl}
end

current = redis.call('INCRBY', key, n)
if current == n then
    redis.call('EXPIRE', key, window)
end

return {1, limit - current, 0}
`

// getKey 生成按窗口对齐的Redis key
func (fw *FixedWindowLimiter) getKey(key string) string {
	windowStart := time.Now().Unix() / int64(fw.config.Window.Seconds())
	return fmt.Sprintf("%s:%s:%d", fw.keyPrefix, key, windowStart)
}

// Allow 检查是否允许请求通过
func (fw *FixedWindowLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return fw.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过
func (fw *FixedWindowLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	return evalLimitScript(ctx, fw.client, fixedWindowScript,
		[]string{fw.getKey(key)},
		fw.config.Rate,
		int64(fw.config.Window.Seconds()),
		n,
	)
}

// Reset 重置当前窗口
func (fw *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	if err := fw.client.Del(ctx, fw.getKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset fixed window: %w", err)
	}

	return nil
}
