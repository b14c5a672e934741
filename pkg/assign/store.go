// Package assign 实现周排班预览与草稿分配落地
package assign

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/eligibility"
)

// ErrShiftAlreadyAssigned 写入草稿分配时班次已有员工
var ErrShiftAlreadyAssigned = errors.New("班次已被分配")

// Store 预览和落地所需的数据访问边界
type Store interface {
	eligibility.Source
	feedback.Store

	// ShiftsInWindow 返回与窗口相交的租户班次，按 (开始时间, ID) 排序
	ShiftsInWindow(ctx context.Context, tenantID uuid.UUID, window model.TimeRange) ([]model.Shift, error)
	// GetShift 返回租户范围内的班次，不存在时返回 nil
	// 事务内调用时锁定该行直到事务结束
	GetShift(ctx context.Context, tenantID, shiftID uuid.UUID) (*model.Shift, error)
	// ActiveEmployees 返回租户的在职员工
	ActiveEmployees(ctx context.Context, tenantID uuid.UUID) ([]model.Employee, error)
	// AssignDraft 将未分配的班次分配给员工并置为草稿状态
	// 班次已有员工时返回 ErrShiftAlreadyAssigned，不做任何写入
	AssignDraft(ctx context.Context, tenantID, shiftID, employeeID uuid.UUID) error
	// AppendAuditLog 追加分配审计日志
	AppendAuditLog(ctx context.Context, entry *model.AssignmentAuditLog) error
}

// TxRunner 在一个事务内执行 fn，fn 返回错误时整体回滚
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// PolicyProvider 租户策略来源
type PolicyProvider interface {
	Policy(ctx context.Context, tenantID uuid.UUID) (eligibility.Policy, error)
	EnsureScoringConfig(ctx context.Context, tenantID uuid.UUID) (model.ScoringConfig, error)
}

// PreviewCache 预览结果缓存
type PreviewCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, weekStart string) (*Preview, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, weekStart string, preview *Preview) error
	Invalidate(ctx context.Context, tenantID uuid.UUID, weekStart string) error
}
