package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
)

// AuditRepository 审计日志与改选记录仓储，两张表都只追加
type AuditRepository struct {
	db DB
}

// NewAuditRepository 创建审计仓储
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AppendAuditLog 追加分配审计日志
func (r *AuditRepository) AppendAuditLog(ctx context.Context, entry *model.AssignmentAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO assignment_audit_logs (
			id, tenant_id, shift_id, employee_id, action, details, created_by_user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.ShiftID, entry.EmployeeID,
		entry.Action, entry.Details, nullUUID(entry.ActorID), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入审计日志失败: %w", err)
	}
	return nil
}

// AppendFeedback 追加改选记录
func (r *AuditRepository) AppendFeedback(ctx context.Context, rec *model.FeedbackRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO feedback_records (
			id, tenant_id, shift_id, original_employee_id, final_employee_id, change_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TenantID, rec.ShiftID, nullUUID(rec.OriginalEmployeeID),
		rec.FinalEmployeeID, rec.ChangeReason, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入改选记录失败: %w", err)
	}
	return nil
}

// CountFeedbackSince 统计 since 之后的改选记录数
func (r *AuditRepository) CountFeedbackSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM feedback_records WHERE tenant_id = $1 AND created_at >= $2`

	var n int
	if err := r.db.QueryRowContext(ctx, query, tenantID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计改选记录失败: %w", err)
	}
	return n, nil
}

// TenantsWithFeedbackSince 返回 since 之后有改选记录的租户
func (r *AuditRepository) TenantsWithFeedbackSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT tenant_id FROM feedback_records WHERE created_at >= $1 ORDER BY tenant_id ASC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("查询反馈租户失败: %w", err)
	}
	defer rows.Close()

	var tenants []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("扫描租户失败: %w", err)
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
