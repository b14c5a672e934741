// Package database 管理 PostgreSQL 连接池、事务和模式迁移
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/paiban/shiftassign/internal/config"
	"github.com/paiban/shiftassign/pkg/logger"

	_ "github.com/lib/pq" // PostgreSQL 驱动
)

const (
	pingTimeout = 5 * time.Second
	// slowThreshold 超过该耗时的语句和事务记为慢操作
	slowThreshold = 100 * time.Millisecond
	// maxLoggedQuery 日志中保留的语句长度
	maxLoggedQuery = 160
)

// DB 连接池，语句执行带慢查询日志
type DB struct {
	*sql.DB
	cfg *config.DatabaseConfig
}

// New 打开连接池并确认数据库可达
func New(cfg *config.DatabaseConfig) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("数据库不可达 %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("数据库已连接")

	return &DB{DB: pool, cfg: cfg}, nil
}

// Close 关闭连接池
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	logger.Info().Msg("关闭数据库连接")
	return db.DB.Close()
}

// Health 健康检查
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Transaction 以 opts 开启事务执行 fn
// fn 返回错误或 panic 时回滚，否则提交；opts 为 nil 时使用驱动默认隔离级别
func (db *DB) Transaction(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if elapsed := time.Since(start); elapsed > slowThreshold {
			logger.WithContext(ctx).Warn().Dur("duration", elapsed).Bool("committed", err == nil).Msg("慢事务")
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("事务回滚失败: %v (原始错误: %w)", rbErr, err)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("事务提交失败: %w", err)
	}
	return nil
}

// ExecContext 执行语句
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer observe(ctx, query, time.Now())
	return db.DB.ExecContext(ctx, query, args...)
}

// QueryContext 执行查询
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer observe(ctx, query, time.Now())
	return db.DB.QueryContext(ctx, query, args...)
}

// QueryRowContext 执行单行查询，耗时在 Scan 时才确定，不记录
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

func observe(ctx context.Context, query string, start time.Time) {
	if elapsed := time.Since(start); elapsed > slowThreshold {
		logger.WithContext(ctx).Warn().
			Str("query", compactQuery(query)).
			Dur("duration", elapsed).
			Msg("慢SQL查询")
	}
}

// compactQuery 合并空白并截断，便于单行日志
func compactQuery(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	if r := []rune(q); len(r) > maxLoggedQuery {
		return string(r[:maxLoggedQuery]) + "..."
	}
	return q
}
