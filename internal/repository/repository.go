// Package repository 提供 PostgreSQL 数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paiban/shiftassign/internal/database"
	"github.com/paiban/shiftassign/internal/policy"
	"github.com/paiban/shiftassign/pkg/assign"
)

// DB 数据库接口，*database.DB 与 *sql.Tx 均满足
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// Store 聚合各仓储，实现分配服务和策略提供者所需的全部读写
type Store struct {
	*ShiftRepository
	*EmployeeRepository
	*PolicyRepository
	*AuditRepository

	db *database.DB
}

// New 创建基于连接池的存储
func New(db *database.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(db DB) *Store {
	return &Store{
		ShiftRepository:    NewShiftRepository(db),
		EmployeeRepository: NewEmployeeRepository(db),
		PolicyRepository:   NewPolicyRepository(db),
		AuditRepository:    NewAuditRepository(db),
	}
}

func newTxStore(tx DB) *Store {
	return &Store{
		ShiftRepository:    newTxShiftRepository(tx),
		EmployeeRepository: NewEmployeeRepository(tx),
		PolicyRepository:   NewPolicyRepository(tx),
		AuditRepository:    NewAuditRepository(tx),
	}
}

var (
	_ assign.Store = (*Store)(nil)
	_ policy.Store = (*Store)(nil)
)

// InTx 在单个 READ COMMITTED 事务中执行 fn，fn 内的读写共享同一事务
// 事务内读取的班次行被锁定，同一班次的并发落地串行执行
func (s *Store) InTx(ctx context.Context, fn func(assign.Store) error) error {
	if s.db == nil {
		return fmt.Errorf("存储已处于事务中")
	}
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return s.db.Transaction(ctx, opts, func(tx *sql.Tx) error {
		return fn(newTxStore(tx))
	})
}
