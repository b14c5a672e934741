package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/paiban/shiftassign/pkg/model"
)

// EmployeeRepository 员工及其可用性、请假、偏好仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// ActiveEmployees 返回租户的在职员工，按 ID 升序
func (r *EmployeeRepository) ActiveEmployees(ctx context.Context, tenantID uuid.UUID) ([]model.Employee, error) {
	query := `
		SELECT id, tenant_id, full_name, email, role, is_active
		FROM employees
		WHERE tenant_id = $1 AND is_active
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var emp model.Employee
		if err := rows.Scan(&emp.ID, &emp.TenantID, &emp.FullName, &emp.Email, &emp.Role, &emp.IsActive); err != nil {
			return nil, fmt.Errorf("扫描员工失败: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// AvailabilityForDates 返回日期在 [from, to) 内的可用性登记
func (r *EmployeeRepository) AvailabilityForDates(ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time) ([]model.Availability, error) {
	query := `
		SELECT id, tenant_id, employee_id, date, is_available, reason
		FROM availability
		WHERE tenant_id = $1 AND employee_id = $2 AND date >= $3 AND date < $4
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, employeeID, model.DateOf(from), model.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("查询可用性失败: %w", err)
	}
	defer rows.Close()

	var out []model.Availability
	for rows.Next() {
		var a model.Availability
		if err := rows.Scan(&a.ID, &a.TenantID, &a.EmployeeID, &a.Date, &a.IsAvailable, &a.Reason); err != nil {
			return nil, fmt.Errorf("扫描可用性失败: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ApprovedTimeOff 返回与窗口重叠的已批准请假
func (r *EmployeeRepository) ApprovedTimeOff(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.TimeOff, error) {
	query := `
		SELECT id, tenant_id, employee_id, start_date, end_date, status
		FROM time_off_requests
		WHERE tenant_id = $1 AND employee_id = $2 AND LOWER(status) = $3
			AND start_date < $5 AND end_date > $4
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, employeeID, model.TimeOffApproved, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("查询请假失败: %w", err)
	}
	defer rows.Close()

	var out []model.TimeOff
	for rows.Next() {
		var t model.TimeOff
		var status string
		if err := rows.Scan(&t.ID, &t.TenantID, &t.EmployeeID, &t.StartDate, &t.EndDate, &status); err != nil {
			return nil, fmt.Errorf("扫描请假失败: %w", err)
		}
		t.Status = model.TimeOffStatus(model.NormalizeTag(status))
		out = append(out, t)
	}
	return out, rows.Err()
}

// Preferences 批量返回员工偏好，缺失的员工不出现在结果中
func (r *EmployeeRepository) Preferences(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID]model.EmployeePreference, error) {
	out := make(map[uuid.UUID]model.EmployeePreference)
	if len(employeeIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT tenant_id, employee_id, open_shift_participation_enabled, allow_auto_assign_open_shifts,
			preferred_start_hour, preferred_end_hour, secondary_role_type
		FROM employee_preferences
		WHERE tenant_id = $1 AND employee_id = ANY($2)
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(uuidStrings(employeeIDs)))
	if err != nil {
		return nil, fmt.Errorf("查询员工偏好失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描员工偏好失败: %w", err)
		}
		out[p.EmployeeID] = *p
	}
	return out, rows.Err()
}

func scanPreference(row Scanner) (*model.EmployeePreference, error) {
	p := &model.EmployeePreference{}
	var startHour, endHour sql.NullInt32
	var secondary sql.NullString

	if err := row.Scan(
		&p.TenantID, &p.EmployeeID, &p.OpenShiftParticipationEnabled, &p.AllowAutoAssignOpenShifts,
		&startHour, &endHour, &secondary,
	); err != nil {
		return nil, err
	}

	if startHour.Valid {
		v := int(startHour.Int32)
		p.PreferredStartHour = &v
	}
	if endHour.Valid {
		v := int(endHour.Int32)
		p.PreferredEndHour = &v
	}
	if secondary.Valid {
		v := secondary.String
		p.SecondaryRoleType = &v
	}
	return p, nil
}
