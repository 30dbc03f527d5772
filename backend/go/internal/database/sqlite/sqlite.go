package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 打开 (必要时创建) 本地 SQLite 数据库文件。
// 使用纯 Go 的 glebarez/sqlite 驱动，单机部署无需 cgo。
func Open(cfg *config.SQLiteConfig) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("无法创建 SQLite 目录 '%s': %w", dir, err)
		}
	}

	// WAL 模式允许读写并发，busy_timeout 避免短暂的写锁冲突直接报错。
	dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法打开 SQLite 数据库 '%s': %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("无法获取底层 SQL DB 实例: %w", err)
	}
	// SQLite 同一时间只允许一个写者。
	sqlDB.SetMaxOpenConns(1)

	logrus.WithField("path", cfg.Path).Info("成功打开 SQLite 数据库")
	return db, nil
}
