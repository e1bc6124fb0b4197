package services

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryCache 公共查询结果缓存, 同一个 key 的并发未命中只加载一次
type QueryCache struct {
	cache map[string]*CacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// CacheEntry 缓存条目
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// NewQueryCache 创建查询缓存. ttl<=0 时不缓存, 只合并并发请求.
func NewQueryCache(ttl time.Duration) *QueryCache {
	cache := &QueryCache{
		cache: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	// 启动清理协程
	go cache.cleanupLoop()

	return cache
}

// Get 获取缓存
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	// 检查是否过期
	if c.now().After(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Data, true
}

// Set 设置缓存
func (c *QueryCache) Set(key string, data interface{}) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &CacheEntry{
		Data:      data,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

// GetOrLoad 命中直接返回, 否则调用 load 并缓存结果. 出错不缓存.
func (c *QueryCache) GetOrLoad(key string, load func() (interface{}, error)) (interface{}, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, data)
		return data, nil
	})
	return data, err
}

// Delete 删除缓存
func (c *QueryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
	c.group.Forget(key)
}

// DeletePrefix 删除指定前缀的所有缓存
func (c *QueryCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.cache {
		if strings.HasPrefix(key, prefix) {
			delete(c.cache, key)
			c.group.Forget(key)
			removed++
		}
	}
	return removed
}

// Clear 清空缓存
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[string]*CacheEntry)
}

// Size 获取缓存大小
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}

// Stop 停止清理协程
func (c *QueryCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop 定期清理过期缓存
func (c *QueryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup 清理过期缓存
func (c *QueryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			delete(c.cache, key)
		}
	}
}

// GenerateCacheKey 生成缓存键
func GenerateCacheKey(prefix string, params interface{}) string {
	jsonBytes, err := json.Marshal(params)
	if err != nil {
		// 序列化失败时生成唯一键, 等于不缓存
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}

	hash := sha256.Sum256(jsonBytes)
	return fmt.Sprintf("%s_%x", prefix, hash[:16])
}
