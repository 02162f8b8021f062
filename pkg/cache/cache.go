// Package cache 提供基于键值存储的泛型缓存实现.
//
// 该包提供类型安全的缓存操作，底层使用JSON序列化并支持TTL.
// 主要消费方是恶意内容扫描：按内容摘要缓存 clean 判定，
// 同一内容重复上传时跳过引擎扫描.
//
// 基本用法:
//
//	c := cache.NewCache(kvStore)
//
//	// 缓存扫描判定（键为内容摘要）
//	err := cache.Set(ctx, c, "scan:clean:"+digest, true, ttl)
//
//	// 读取判定
//	clean, err := cache.Get[bool](ctx, c, "scan:clean:"+digest)
//
//	// GetOrSet：未命中时执行扫描并回填
//	clean, err := cache.GetOrSet(ctx, c, "scan:clean:"+digest, func() (bool, error) {
//	    return scanContent(ctx, path)
//	}, ttl)
//
// 支持的KV存储类型取决于 kv 包注册的工厂：内存、Redis、NATS KV、Groupcache.
//
// 线程安全取决于底层KV存储实现；缓存未命中通过error返回，
// 调用方按未命中处理即可.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/filegate/pkg/internal/storage/kv"
)

// Cache 基于KV存储的缓存实现.
type Cache struct {
	kvStore kv.KVStore
}

// NewCache 创建一个新的缓存实例.
func NewCache(kvStore kv.KVStore) *Cache {
	return &Cache{
		kvStore: kvStore,
	}
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.kvStore.Set(ctx, key, data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, key)
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, key)
}

// GetOrSet 获取缓存值，如果不存在则设置.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	var zero T

	// 尝试获取
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	// 获取新值
	value, err := getter()
	if err != nil {
		return zero, err
	}

	// 设置缓存
	if setErr := Set(ctx, c, key, value, ttl); setErr != nil {
		// 缓存失败，但仍返回值
		return value, nil
	}

	return value, nil
}

// Clear 清空缓存（如果支持）.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.kvStore.Keys(ctx, "*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		// 部分KV存储可能不支持删除所有键
		if delErr := c.kvStore.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}

	return nil
}
