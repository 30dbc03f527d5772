package minio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

const connectTimeout = 10 * time.Second

// Connect 创建 MinIO 客户端并确认协议文档存储桶可用。
// 只在启动时发布协议文档用一次，因此不做单例缓存。
func Connect(ctx context.Context, cfg *config.MinIOConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("未配置 MinIO endpoint")
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("无法创建 MinIO 客户端: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := EnsureBucket(ctx, c, cfg.Bucket); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}).Info("MinIO 连接就绪")
	return c, nil
}

// EnsureBucket 在存储桶不存在时创建它。并发创建导致的“已存在”视为成功。
func EnsureBucket(ctx context.Context, c *minio.Client, bucket string) error {
	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶 '%s' 失败: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		switch minio.ToErrorResponse(err).Code {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return nil
		}
		return fmt.Errorf("创建 MinIO 存储桶 '%s' 失败: %w", bucket, err)
	}
	logrus.WithField("bucket", bucket).Info("已创建 MinIO 存储桶")
	return nil
}
