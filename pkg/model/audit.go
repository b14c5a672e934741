package model

import (
	"time"

	"github.com/google/uuid"
)

// 审计动作
const (
	ActionAssignmentApplied = "AI_ASSIGNMENT_APPLIED"
)

// 反馈原因
const (
	ReasonManualOverride = "MANUAL_OVERRIDE"
)

// AssignmentAuditLog 分配审计日志（只追加）
type AssignmentAuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ShiftID    uuid.UUID  `json:"shift_id" db:"shift_id"`
	EmployeeID uuid.UUID  `json:"employee_id" db:"employee_id"`
	Action     string     `json:"action" db:"action"`
	Details    string     `json:"details,omitempty" db:"details"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty" db:"created_by_user_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// FeedbackRecord 人工改选记录
type FeedbackRecord struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	TenantID           uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	ShiftID            uuid.UUID  `json:"shift_id" db:"shift_id"`
	OriginalEmployeeID *uuid.UUID `json:"original_employee_id,omitempty" db:"original_employee_id"`
	FinalEmployeeID    uuid.UUID  `json:"final_employee_id" db:"final_employee_id"`
	ChangeReason       string     `json:"change_reason,omitempty" db:"change_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}
