package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	connectTimeout  = 10 * time.Second
	maxPoolSize     = 50
	selectionWindow = 5 * time.Second
)

// Connect 连接 MongoDB 并返回配置中指定的数据库。
// 客户端归调用方所有，由存储层在关闭时 Disconnect，所以这里不做单例。
func Connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if cfg.Database == "" {
		return nil, nil, errors.New("未配置 MongoDB 数据库名称")
	}
	opts := options.Client().
		ApplyURI(cfg.Address).
		SetAppName("coordinator").
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(selectionWindow)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("无法连接到 MongoDB: %w", err)
	}
	// 连接是惰性的，Ping 主节点确认可写。
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("无法 Ping MongoDB: %w", err)
	}

	logrus.WithField("database", cfg.Database).Info("成功连接到 MongoDB")
	return c, c.Database(cfg.Database), nil
}
