// Package cache 提供基于 Redis 的周预览缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/paiban/shiftassign/internal/config"
	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/pkg/assign"
)

const keyPrefix = "shiftassign:preview"

// Client 封装 Redis 连接，未启用时所有操作为空操作
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// NewClient 按配置创建客户端并测试连接
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}
	return &Client{rdb: rdb, enabled: true}, nil
}

// Enabled 是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Close 关闭连接
func (c *Client) Close() error {
	if c != nil && c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Health 健康检查
func (c *Client) Health(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// PreviewCache 以 (租户, 周起始日) 为键缓存预览结果
type PreviewCache struct {
	client *Client
	ttl    time.Duration
}

var _ assign.PreviewCache = (*PreviewCache)(nil)

// NewPreviewCache 创建预览缓存
func NewPreviewCache(client *Client, ttl time.Duration) *PreviewCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PreviewCache{client: client, ttl: ttl}
}

// Key 返回缓存键
func Key(tenantID uuid.UUID, weekStart string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, weekStart)
}

// Get 读取缓存，未命中时返回 false
func (c *PreviewCache) Get(ctx context.Context, tenantID uuid.UUID, weekStart string) (*assign.Preview, bool, error) {
	if !c.client.Enabled() {
		return nil, false, nil
	}

	data, err := c.client.rdb.Get(ctx, Key(tenantID, weekStart)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取预览缓存失败: %w", err)
	}

	preview, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	metrics.RecordCacheLookup(true)
	return preview, true, nil
}

// Set 写入缓存
func (c *PreviewCache) Set(ctx context.Context, tenantID uuid.UUID, weekStart string, preview *assign.Preview) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := encode(preview)
	if err != nil {
		return err
	}
	return c.client.rdb.Set(ctx, Key(tenantID, weekStart), data, c.ttl).Err()
}

// Invalidate 删除缓存
func (c *PreviewCache) Invalidate(ctx context.Context, tenantID uuid.UUID, weekStart string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.rdb.Del(ctx, Key(tenantID, weekStart)).Err()
}

func encode(preview *assign.Preview) ([]byte, error) {
	data, err := json.Marshal(preview)
	if err != nil {
		return nil, fmt.Errorf("序列化预览失败: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*assign.Preview, error) {
	var preview assign.Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		return nil, fmt.Errorf("反序列化预览失败: %w", err)
	}
	return &preview, nil
}
