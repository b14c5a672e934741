// Package memstore 提供内存版数据存储，用于测试和本地开发
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/model"
)

// state 可整体快照的数据集
type state struct {
	shifts       map[uuid.UUID]model.Shift
	employees    map[uuid.UUID]model.Employee
	availability []model.Availability
	timeOff      []model.TimeOff
	preferences  map[uuid.UUID]model.EmployeePreference
	rules        map[uuid.UUID]model.ContractRule
	settings     map[uuid.UUID]model.TenantSchedulingSettings
	configs      map[uuid.UUID]model.ScoringConfig
	audit        []model.AssignmentAuditLog
	feedback     []model.FeedbackRecord
}

func newState() *state {
	return &state{
		shifts:      make(map[uuid.UUID]model.Shift),
		employees:   make(map[uuid.UUID]model.Employee),
		preferences: make(map[uuid.UUID]model.EmployeePreference),
		rules:       make(map[uuid.UUID]model.ContractRule),
		settings:    make(map[uuid.UUID]model.TenantSchedulingSettings),
		configs:     make(map[uuid.UUID]model.ScoringConfig),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.shifts {
		c.shifts[k] = v
	}
	for k, v := range st.employees {
		c.employees[k] = v
	}
	for k, v := range st.preferences {
		c.preferences[k] = v
	}
	for k, v := range st.rules {
		c.rules[k] = v
	}
	for k, v := range st.settings {
		c.settings[k] = v
	}
	for k, v := range st.configs {
		c.configs[k] = v
	}
	c.availability = append([]model.Availability(nil), st.availability...)
	c.timeOff = append([]model.TimeOff(nil), st.timeOff...)
	c.audit = append([]model.AssignmentAuditLog(nil), st.audit...)
	c.feedback = append([]model.FeedbackRecord(nil), st.feedback...)
	return c
}

// Store 内存存储
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *state
	// failOn 非空时对应操作返回错误，用于测试回滚
	failOn map[string]error
}

// New 创建内存存储
func New() *Store {
	return &Store{data: newState(), failOn: make(map[string]error)}
}

var _ assign.Store = (*Store)(nil)

// FailOn 让指定操作返回 err，err 为 nil 时取消
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, op)
		return
	}
	s.failOn[op] = err
}

func (s *Store) fail(op string) error {
	if err, ok := s.failOn[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InTx 串行执行事务；fn 返回错误时恢复到事务开始前的快照
func (s *Store) InTx(ctx context.Context, fn func(assign.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ==================== 数据准备 ====================

// AddShift 添加或覆盖班次
func (s *Store) AddShift(shift model.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.shifts[shift.ID] = shift
}

// AddEmployee 添加或覆盖员工
func (s *Store) AddEmployee(emp model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.employees[emp.ID] = emp
}

// AddAvailability 添加可用性登记
func (s *Store) AddAvailability(a model.Availability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.data.availability = append(s.data.availability, a)
}

// AddTimeOff 添加请假记录
func (s *Store) AddTimeOff(t model.TimeOff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.data.timeOff = append(s.data.timeOff, t)
}

// SetPreference 设置员工偏好
func (s *Store) SetPreference(p model.EmployeePreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.preferences[p.EmployeeID] = p
}

// SetContractRule 设置合同规则
func (s *Store) SetContractRule(r model.ContractRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rules[r.TenantID] = r
}

// SetSchedulingSettings 设置排班设置
func (s *Store) SetSchedulingSettings(st model.TenantSchedulingSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.settings[st.TenantID] = st
}

// Shift 按 ID 读取班次
func (s *Store) Shift(id uuid.UUID) (model.Shift, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shift, ok := s.data.shifts[id]
	return shift, ok
}

// AuditLogs 返回全部审计日志
func (s *Store) AuditLogs() []model.AssignmentAuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.AssignmentAuditLog(nil), s.data.audit...)
}

// FeedbackRecords 返回全部改选记录
func (s *Store) FeedbackRecords() []model.FeedbackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.FeedbackRecord(nil), s.data.feedback...)
}

// ==================== 班次 ====================

// ShiftsInWindow 返回与窗口相交的租户班次
func (s *Store) ShiftsInWindow(ctx context.Context, tenantID uuid.UUID, window model.TimeRange) ([]model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ShiftsInWindow"); err != nil {
		return nil, err
	}

	var out []model.Shift
	for _, shift := range s.data.shifts {
		if shift.TenantID == tenantID && shift.Window().Overlaps(window) {
			out = append(out, shift)
		}
	}
	sortShifts(out)
	return out, nil
}

// GetShift 返回租户范围内的班次
func (s *Store) GetShift(ctx context.Context, tenantID, shiftID uuid.UUID) (*model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetShift"); err != nil {
		return nil, err
	}

	shift, ok := s.data.shifts[shiftID]
	if !ok || shift.TenantID != tenantID {
		return nil, nil
	}
	return &shift, nil
}

// AssignDraft 将班次分配给员工并置为草稿
func (s *Store) AssignDraft(ctx context.Context, tenantID, shiftID, employeeID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AssignDraft"); err != nil {
		return err
	}

	shift, ok := s.data.shifts[shiftID]
	if !ok || shift.TenantID != tenantID {
		return fmt.Errorf("班次 %s 不存在", shiftID)
	}
	if !shift.IsUnassigned() {
		return assign.ErrShiftAlreadyAssigned
	}
	emp := employeeID
	shift.EmployeeID = &emp
	shift.Status = model.ShiftDraft
	s.data.shifts[shiftID] = shift
	return nil
}

// ShiftsForEmployee 返回分配给员工且与窗口相交的班次
func (s *Store) ShiftsForEmployee(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ShiftsForEmployee"); err != nil {
		return nil, err
	}

	var out []model.Shift
	for _, shift := range s.data.shifts {
		if shift.TenantID == tenantID && shift.AssignedTo(employeeID) && shift.Window().Overlaps(window) {
			out = append(out, shift)
		}
	}
	sortShifts(out)
	return out, nil
}

// PreviousShift 返回结束时间不晚于 before 的最近班次
func (s *Store) PreviousShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, before time.Time) (*model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Shift
	for _, shift := range s.data.shifts {
		if shift.TenantID != tenantID || shift.ID == excludeID || !shift.AssignedTo(employeeID) {
			continue
		}
		if shift.EndTime.After(before) {
			continue
		}
		if best == nil || shift.EndTime.After(best.EndTime) ||
			(shift.EndTime.Equal(best.EndTime) && model.CompareIDs(shift.ID, best.ID) < 0) {
			c := shift
			best = &c
		}
	}
	return best, nil
}

// NextShift 返回开始时间不早于 after 的最近班次
func (s *Store) NextShift(ctx context.Context, tenantID, employeeID, excludeID uuid.UUID, after time.Time) (*model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.Shift
	for _, shift := range s.data.shifts {
		if shift.TenantID != tenantID || shift.ID == excludeID || !shift.AssignedTo(employeeID) {
			continue
		}
		if shift.StartTime.Before(after) {
			continue
		}
		if best == nil || shift.StartTime.Before(best.StartTime) ||
			(shift.StartTime.Equal(best.StartTime) && model.CompareIDs(shift.ID, best.ID) < 0) {
			c := shift
			best = &c
		}
	}
	return best, nil
}

// RoleHistory 返回员工做过的班次角色
func (s *Store) RoleHistory(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[uuid.UUID]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID][]string)
	for _, shift := range s.data.shifts {
		if shift.TenantID != tenantID || shift.EmployeeID == nil || shift.RoleType == "" {
			continue
		}
		if wanted[*shift.EmployeeID] {
			out[*shift.EmployeeID] = append(out[*shift.EmployeeID], shift.RoleType)
		}
	}
	return out, nil
}

// ==================== 员工 ====================

// ActiveEmployees 返回租户的在职员工，按 ID 升序
func (s *Store) ActiveEmployees(ctx context.Context, tenantID uuid.UUID) ([]model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("ActiveEmployees"); err != nil {
		return nil, err
	}

	var out []model.Employee
	for _, emp := range s.data.employees {
		if emp.TenantID == tenantID && emp.IsActive {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return model.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

// AvailabilityForDates 返回日期在 [from, to) 内的可用性登记
func (s *Store) AvailabilityForDates(ctx context.Context, tenantID, employeeID uuid.UUID, from, to time.Time) ([]model.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Availability
	for _, a := range s.data.availability {
		d := model.DateOf(a.Date)
		if a.TenantID == tenantID && a.EmployeeID == employeeID && !d.Before(from) && d.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ApprovedTimeOff 返回与窗口重叠的已批准请假
func (s *Store) ApprovedTimeOff(ctx context.Context, tenantID, employeeID uuid.UUID, window model.TimeRange) ([]model.TimeOff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TimeOff
	for _, t := range s.data.timeOff {
		if t.TenantID == tenantID && t.EmployeeID == employeeID && t.IsApproved() && t.Window().Overlaps(window) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Preferences 返回员工偏好，缺失的员工不出现在结果中
func (s *Store) Preferences(ctx context.Context, tenantID uuid.UUID, employeeIDs []uuid.UUID) (map[uuid.UUID]model.EmployeePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uuid.UUID]model.EmployeePreference)
	for _, id := range employeeIDs {
		if p, ok := s.data.preferences[id]; ok && p.TenantID == tenantID {
			out[id] = p
		}
	}
	return out, nil
}

// ==================== 审计与反馈 ====================

// AppendAuditLog 追加审计日志
func (s *Store) AppendAuditLog(ctx context.Context, entry *model.AssignmentAuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendAuditLog"); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.data.audit = append(s.data.audit, *entry)
	return nil
}

// AppendFeedback 追加改选记录
func (s *Store) AppendFeedback(ctx context.Context, rec *model.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendFeedback"); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	s.data.feedback = append(s.data.feedback, *rec)
	return nil
}

// CountFeedbackSince 统计 since 之后的改选记录数
func (s *Store) CountFeedbackSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.data.feedback {
		if rec.TenantID == tenantID && !rec.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// TenantsWithFeedbackSince 返回 since 之后有改选记录的租户
func (s *Store) TenantsWithFeedbackSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, rec := range s.data.feedback {
		if rec.CreatedAt.Before(since) || seen[rec.TenantID] {
			continue
		}
		seen[rec.TenantID] = true
		out = append(out, rec.TenantID)
	}
	sort.Slice(out, func(i, j int) bool { return model.CompareIDs(out[i], out[j]) < 0 })
	return out, nil
}

// ==================== 租户策略 ====================

// GetContractRule 返回合同规则，未配置时返回 nil
func (s *Store) GetContractRule(ctx context.Context, tenantID uuid.UUID) (*model.ContractRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail("GetContractRule"); err != nil {
		return nil, err
	}
	r, ok := s.data.rules[tenantID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// GetSchedulingSettings 返回排班设置，未配置时返回 nil
func (s *Store) GetSchedulingSettings(ctx context.Context, tenantID uuid.UUID) (*model.TenantSchedulingSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.settings[tenantID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// GetScoringConfig 返回评分配置，未配置时返回 nil
func (s *Store) GetScoringConfig(ctx context.Context, tenantID uuid.UUID) (*model.ScoringConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.data.configs[tenantID]
	if !ok {
		return nil, nil
	}
	return copyConfig(cfg), nil
}

// InsertScoringConfigIfAbsent 不存在时插入，返回最终存储的配置
func (s *Store) InsertScoringConfigIfAbsent(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertScoringConfigIfAbsent"); err != nil {
		return model.ScoringConfig{}, err
	}
	if existing, ok := s.data.configs[cfg.TenantID]; ok {
		return *copyConfig(existing), nil
	}
	s.data.configs[cfg.TenantID] = *copyConfig(cfg)
	return cfg, nil
}

// SaveScoringConfig 保存评分配置
func (s *Store) SaveScoringConfig(ctx context.Context, cfg model.ScoringConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SaveScoringConfig"); err != nil {
		return err
	}
	s.data.configs[cfg.TenantID] = *copyConfig(cfg)
	return nil
}

// copyConfig 复制配置，阈值指针不与调用方共享
func copyConfig(cfg model.ScoringConfig) *model.ScoringConfig {
	if cfg.MinScoreThreshold != nil {
		v := *cfg.MinScoreThreshold
		cfg.MinScoreThreshold = &v
	}
	return &cfg
}

func sortShifts(shifts []model.Shift) {
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].StartTime.Equal(shifts[j].StartTime) {
			return shifts[i].StartTime.Before(shifts[j].StartTime)
		}
		return model.CompareIDs(shifts[i].ID, shifts[j].ID) < 0
	})
}
