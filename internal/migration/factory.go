package migration

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/config"
	"github.com/BaSui01/tripcrew/internal/database"
)

// NewMigratorFromDatabaseConfig 用应用的数据库配置打开一条独立连接并创建迁移器。
// sqlite 走纯 Go 驱动，不需要 cgo。
func NewMigratorFromDatabaseConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	gdb, err := database.Open(cfg.Driver, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	m, err := NewMigrator(sqlDB, dbType, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return m, nil
}

// MigrateUp 启动时自动迁移：打开、Up、关闭
func MigrateUp(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := NewMigratorFromDatabaseConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return err
	}
	version, _, err := m.Version(ctx)
	if err != nil {
		return err
	}
	if logger != nil {
		logger.Info("database schema up to date", zap.Uint("version", version))
	}
	return nil
}
