package redis

import (
	"context"
	"fmt"
	"time"

	"mindguard-analyzer/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// pingTimeout 启动检查超时
const pingTimeout = 3 * time.Second

// Client Redis 客户端类型别名
type Client = redis.Client

// Options 由配置生成客户端参数，0 值保持 go-redis 默认
func Options(cfg *config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeout) * time.Second
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Second
	}
	return opts
}

// NewRedisClient 创建 Redis 客户端（缓存、基线快照与评估 stream 共用）
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(Options(cfg))
}

// Ping 在超时内检查 Redis 连通性
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis %s: %w", client.Options().Addr, err)
	}
	return nil
}

// Close 关闭 Redis 连接，nil 时忽略
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
