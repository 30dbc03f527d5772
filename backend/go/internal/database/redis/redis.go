package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

var (
	client  *redis.Client
	once    sync.Once
	initErr error
)

// NewClient 创建一个 Redis 客户端并 Ping 一次，不经过单例。测试中用于连接 miniredis。
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("无法连接到 Redis: %w", err)
	}
	return rdb, nil
}

// GetClient 使用单例模式初始化并返回一个 Redis 客户端实例。
// 协调服务用它镜像 Agent 在线状态，供其他进程只读查询。
func GetClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	once.Do(func() {
		rdb, err := NewClient(ctx, cfg)
		if err != nil {
			initErr = err
			return
		}
		logrus.WithField("address", cfg.Address).Info("成功连接到 Redis")
		client = rdb
	})

	return client, initErr
}

// Close 安全地关闭单例的 Redis 连接。
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}
