package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mindguard-analyzer/internal/common/config"

	_ "github.com/lib/pq"
)

// defaultConnectTimeout 未配置时的连通性检查超时
const defaultConnectTimeout = 5 * time.Second

// NewPostgresDB 打开评估库连接池，并在超时内检查连通性
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ConfigurePool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return db, nil
}

// ConfigurePool 按配置设置连接池，0 值保持 database/sql 默认
func ConfigurePool(db *sql.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
}

func connectTimeout(cfg *config.DatabaseConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return time.Duration(cfg.ConnectTimeout) * time.Second
	}
	return defaultConnectTimeout
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
