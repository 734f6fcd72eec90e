// Package limiter 令牌桶限流器实现
package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBucketLimiter 令牌桶限流器
// 桶状态存在Redis哈希里，补充和扣减在Lua脚本内原子完成，
// 多实例部署时限流口径一致
type TokenBucketLimiter struct {
	client    redis.Cmdable
	config    *Config
	keyPrefix string
}

// NewTokenBucketLimiter 创建令牌桶限流器
func NewTokenBucketLimiter(client redis.Cmdable, config *Config) *TokenBucketLimiter {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "limiter:tb"
	}

	return &TokenBucketLimiter{
		client:    client,
		config:    config,
		keyPrefix: prefix,
	}
}

// Redis Lua脚本：令牌桶算法
const tokenBucketScript = `
-- KEYS[1]: 令牌桶key
-- ARGV[1]: 容量(burst)
-- ARGV[2]: 补充速率(rate)
-- ARGV[3]: 时间窗口(window秒)
-- ARGV[4]: 请求令牌数
-- ARGV[5]: 当前时间戳

local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local window = tonumber(ARGV[3])
local tokens_requested = tonumber(ARGV[4])
local now = tonumber(ARGV[5])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

-- 按流逝时间补充令牌
local time_passed = math.max(0, now - last_refill)
local tokens_to_add = math.floor(time_passed * rate / window)
tokens = math.min(capacity, tokens + tokens_to_add)
last_refill = now

if tokens >= tokens_requested then
    tokens = tokens - tokens_requested
    redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
    redis.call('EXPIRE', key, window * 2)
    return {1, tokens, 0}
else
    local tokens_needed = tokens_requested - tokens
    local retry_after = math.ceil(tokens_needed * window / rate)
    redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
    redis.call('EXPIRE', key, window * 2)
    return {0, tokens, retry_after}
end
`

// getKey 生成Redis key
func (tb *TokenBucketLimiter) getKey(key string) string {
	return fmt.Sprintf("%s:%s", tb.keyPrefix, key)
}

// Allow 检查是否允许请求通过
func (tb *TokenBucketLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return tb.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过
func (tb *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	return evalLimitScript(ctx, tb.client, tokenBucketScript,
		[]string{tb.getKey(key)},
		tb.config.Burst,
		tb.config.Rate,
		int64(tb.config.Window.Seconds()),
		n,
		time.Now().Unix(),
	)
}

// Reset 重置令牌桶
func (tb *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	if err := tb.client.Del(ctx, tb.getKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset token bucket: %w", err)
	}

	return nil
}
