package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存（L1 缓存）
//
// 用于缓存全局署名配置等读多写少的数据；条目超过 TTL 后失效，
// 后台协程定期清理过期条目，Stop 后停止清理。
type LocalCache struct {
	data     sync.Map
	ttl      time.Duration
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间
//   - cleanupInterval: 过期条目清理间隔，<=0 时使用 1 分钟
func NewLocalCache(ttl, cleanupInterval time.Duration) *LocalCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	c := &LocalCache{
		ttl:      ttl,
		interval: cleanupInterval,
		stop:     make(chan struct{}),
		now:      time.Now,
	}

	go c.cleanupLoop()

	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (any, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.data.Delete(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (c *LocalCache) Set(key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	c.data.Store(key, &cacheEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	})
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.data.Delete(key)
}

// Clear 清空所有缓存
func (c *LocalCache) Clear() {
	c.data.Range(func(key, _ any) bool {
		c.data.Delete(key)
		return true
	})
}

// Stop 停止后台清理协程，可重复调用
func (c *LocalCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *LocalCache) purgeExpired() {
	now := c.now()
	c.data.Range(func(key, value any) bool {
		if now.After(value.(*cacheEntry).expiresAt) {
			c.data.Delete(key)
		}
		return true
	})
}
