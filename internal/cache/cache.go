// Package cache 提供缓存抽象和Redis实现
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss 表示键不存在或已过期
// 缓存装饰器用它区分"未命中"和真正的缓存故障
var ErrCacheMiss = errors.New("cache: key not found")

// Cache 定义缓存操作接口
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryCache 内存缓存实现（用于开发和测试）
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]*memoryCacheItem
}

type memoryCacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*memoryCacheItem),
	}
}

// Get 获取缓存值
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	item, exists := m.data[key]
	m.mu.RUnlock()

	if !exists {
		return ErrCacheMiss
	}

	if time.Now().After(item.expiration) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return ErrCacheMiss
	}

	return json.Unmarshal(item.value, dest)
}

// Set 设置缓存值
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[key] = &memoryCacheItem{
		value:      data,
		expiration: time.Now().Add(expiration),
	}
	m.mu.Unlock()

	return nil
}

// Del 删除缓存值
func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()
	return nil
}

// Exists 检查键是否存在
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	item, exists := m.data[key]
	m.mu.RUnlock()

	if !exists {
		return false, nil
	}

	if time.Now().After(item.expiration) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Ping 检查连接
func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close 关闭缓存
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.data = make(map[string]*memoryCacheItem)
	m.mu.Unlock()
	return nil
}

// NullCache 空缓存实现（禁用缓存时使用）
type NullCache struct{}

// NewNullCache 创建空缓存实例
func NewNullCache() *NullCache {
	return &NullCache{}
}

func (n *NullCache) Get(ctx context.Context, key string, dest interface{}) error {
	return ErrCacheMiss
}

func (n *NullCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (n *NullCache) Del(ctx context.Context, keys ...string) error {
	return nil
}

func (n *NullCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (n *NullCache) Ping(ctx context.Context) error {
	return nil
}

func (n *NullCache) Close() error {
	return nil
}
