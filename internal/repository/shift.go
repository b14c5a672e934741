package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/model"
)

const shiftColumns = `id, tenant_id, employee_id, start_time, end_time, role_type, status`

// ShiftRepository 班次仓储
type ShiftRepository struct {
	db DB
	// lockRows 为 true 时 GetShift 使用 FOR UPDATE，仅在事务内启用
	lockRows bool
}

// NewShiftRepository 创建班次仓储
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// newTxShiftRepository 创建事务内的班次仓储
func newTxShiftRepository(tx DB) *ShiftRepository {
	return &ShiftRepository{db: tx, lockRows: true}
}

// ShiftsInWindow 返回与窗口相交的租户班次，按 (开始时间, ID) 排序
func (r *ShiftRepository) ShiftsInWindow(ctx context.Context, tenantID uuid.UUID, window model.TimeRange) ([]model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC, id ASC
	`
	return r.queryShifts(ctx, query, tenantID, window.Start, window.End)
}

// GetShift 返回租户范围内的班次，不存在时返回 nil
func (r *ShiftRepository) GetShift(ctx context.Context, tenantID, shiftID uuid.UUID) (*model.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 AND tenant_id = $2`
	if r.lockRows {
		query += ` FOR UPDATE`
	}

	shift, err := scanShift(r.db.QueryRowContext(ctx, query, shiftID, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	return shift, nil
}

// AssignDraft 将未分配的班次分配给员工并置为草稿状态
// 条件更新保证并发落地只有一个成功，其余返回 assign.ErrShiftAlreadyAssigned
func (r *ShiftRepository) AssignDraft(ctx context.Context, tenantID, shiftID, employeeID uuid.UUID) error {
	query := `
		UPDATE shifts SET employee_id = $3, status = $4, updated_at = $5
		WHERE id = $1 AND tenant_id = $2 AND employee_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, shiftID, tenantID, employeeID, model.ShiftDraft, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("写入草稿分配失败: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取草稿分配影响行数失败: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shifts WHERE id = $1 AND tenant_id = $2)`,
		shiftID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("查询班次失败: %w", err)
	}
	if exists {
		return assign.ErrShiftAlreadyAssigned
	}
	return fmt.Errorf("班次 %s 不存在", shiftID)
}

// ShiftsForEmployee 返回分配给员工且与窗口相交的班次
func (r *ShiftRepository) ShiftsForEmployee(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1 AND employee_id = $2 AND start_time < $4 AND end_time > $3
		ORDER BY start_time ASC, id ASC
	`
	return r.queryShifts(ctx, query, tenantID, employeeID, window.Start, window.End)
}

// PreviousShift 返回结束时间不晚于 before 的最近班次
func (r *ShiftRepository) PreviousShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, before time.Time) (*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1 AND employee_id = $2 AND id <> $3 AND end_time <= $4
		ORDER BY end_time DESC, id ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, tenantID, employeeID, excludeID, before)
}

// NextShift 返回开始时间不早于 after 的最近班次
func (r *ShiftRepository) NextShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, after time.Time) (*model.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE tenant_id = $1 AND employee_id = $2 AND id <> $3 AND start_time >= $4
		ORDER BY start_time ASC, id ASC
		LIMIT 1
	`
	return r.queryOne(ctx, query, tenantID, employeeID, excludeID, after)
}

// RoleHistory 批量返回员工历史上做过的角色
func (r *ShiftRepository) RoleHistory(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	out := make(map[uuid.UUID][]string)
	if len(employeeIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT employee_id, role_type
		FROM shifts
		WHERE tenant_id = $1 AND employee_id = ANY($2) AND role_type IS NOT NULL AND role_type <> ''
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(uuidStrings(employeeIDs)))
	if err != nil {
		return nil, fmt.Errorf("查询角色历史失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var empID uuid.UUID
		var role string
		if err := rows.Scan(&empID, &role); err != nil {
			return nil, fmt.Errorf("扫描角色历史失败: %w", err)
		}
		out[empID] = append(out[empID], role)
	}
	return out, rows.Err()
}

func (r *ShiftRepository) queryShifts(ctx context.Context, query string, args ...interface{}) ([]model.Shift, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, *shift)
	}
	return shifts, rows.Err()
}

func (r *ShiftRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*model.Shift, error) {
	shift, err := scanShift(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询相邻班次失败: %w", err)
	}
	return shift, nil
}

func scanShift(row Scanner) (*model.Shift, error) {
	shift := &model.Shift{}
	var employeeID uuid.NullUUID
	var roleType sql.NullString
	var status string

	if err := row.Scan(
		&shift.ID, &shift.TenantID, &employeeID, &shift.StartTime, &shift.EndTime, &roleType, &status,
	); err != nil {
		return nil, err
	}

	if employeeID.Valid {
		id := employeeID.UUID
		shift.EmployeeID = &id
	}
	shift.RoleType = roleType.String
	shift.Status = model.ShiftStatus(status)
	return shift, nil
}

// uuidStrings 转为 pq.Array 可编码的字符串切片
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
