package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mailsign/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "mailsign:"

// Cache Redis 缓存实现
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cache, err := NewCacheWithClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return cache, nil
}

// NewCacheWithClient 使用已有客户端创建缓存实例
func NewCacheWithClient(client *redis.Client) (*Cache, error) {
	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// ========== 署名覆盖缓存 ==========

func overrideKey(contentID int64) string {
	return fmt.Sprintf("%soverride:%d", keyPrefix, contentID)
}

// CacheOverride 按 mail_content_id 缓存署名覆盖
func (c *Cache) CacheOverride(override *domain.SignatureOverride, ttl time.Duration) error {
	data, err := json.Marshal(override)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, overrideKey(override.MailContentID), data, ttl).Err()
}

// GetCachedOverride 获取缓存的署名覆盖
func (c *Cache) GetCachedOverride(contentID int64) (*domain.SignatureOverride, error) {
	data, err := c.client.Get(c.ctx, overrideKey(contentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var override domain.SignatureOverride
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	return &override, nil
}

// DeleteCachedOverride 删除缓存的署名覆盖
func (c *Cache) DeleteCachedOverride(contentID int64) error {
	return c.client.Del(c.ctx, overrideKey(contentID)).Err()
}

// ========== 全局署名配置缓存 ==========

func mailConfigKey() string {
	return keyPrefix + "mail_config"
}

// CacheMailConfig 缓存全局署名配置
func (c *Cache) CacheMailConfig(cfg *domain.MailConfig, ttl time.Duration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, mailConfigKey(), data, ttl).Err()
}

// GetCachedMailConfig 获取缓存的全局署名配置
func (c *Cache) GetCachedMailConfig() (*domain.MailConfig, error) {
	data, err := c.client.Get(c.ctx, mailConfigKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var cfg domain.MailConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DeleteCachedMailConfig 删除缓存的全局署名配置
func (c *Cache) DeleteCachedMailConfig() error {
	return c.client.Del(c.ctx, mailConfigKey()).Err()
}

// Ping 检查 Redis 连接
func (c *Cache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}
