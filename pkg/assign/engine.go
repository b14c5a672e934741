package assign

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
	"github.com/paiban/shiftassign/pkg/scheduler/eligibility"
	"github.com/paiban/shiftassign/pkg/scheduler/scoring"
	"github.com/paiban/shiftassign/pkg/stats"
)

// DateLayout 周起始日期格式
const DateLayout = "2006-01-02"

// ShiftSuggestion 单个班次的推荐
type ShiftSuggestion struct {
	ShiftID               uuid.UUID                `json:"shift_id"`
	RecommendedEmployeeID *uuid.UUID               `json:"recommended_employee_id"`
	RecommendedScore      *float64                 `json:"recommended_score"`
	Candidates            []scoring.CandidateScore `json:"candidates"`
	Notes                 []constraint.Note        `json:"notes"`
}

// UnfilledShift 没有可推荐人选的班次
type UnfilledShift struct {
	ShiftID uuid.UUID               `json:"shift_id"`
	Reasons []constraint.ReasonCode `json:"reasons"`
}

// Preview 周排班预览结果
type Preview struct {
	WeekStart         string                `json:"week_start"`
	ScoringConfigUsed model.ScoringConfig   `json:"scoring_config_used"`
	ShiftSuggestions  []ShiftSuggestion     `json:"shift_suggestions"`
	UnfilledShifts    []UnfilledShift       `json:"unfilled_shifts"`
	FairnessSummary   []stats.EmployeeLoad  `json:"fairness_summary"`
	FairnessMetrics   stats.FairnessMetrics `json:"fairness_metrics"`
	Coverage          stats.CoverageMetrics `json:"coverage"`
}

// Suggestion 按班次查找推荐
func (p *Preview) Suggestion(shiftID uuid.UUID) (*ShiftSuggestion, bool) {
	for i := range p.ShiftSuggestions {
		if p.ShiftSuggestions[i].ShiftID == shiftID {
			return &p.ShiftSuggestions[i], true
		}
	}
	return nil, false
}

// PreviewInput 预览输入
type PreviewInput struct {
	TenantID          uuid.UUID
	WeekStart         time.Time
	IncludeOpenShifts bool
	Policy            eligibility.Policy
	Config            model.ScoringConfig
}

// Ranking 单个班次的过滤与评分结果
type Ranking struct {
	Ranked   []scoring.CandidateScore
	Rejected map[uuid.UUID][]constraint.ReasonCode
	Reasons  []constraint.ReasonCode
}

// Top 返回排名第一的候选人
func (r *Ranking) Top() *scoring.CandidateScore {
	return scoring.Top(r.Ranked)
}

// Assignment 一条人工确认的分配
type Assignment struct {
	ShiftID    uuid.UUID `json:"shift_id" validate:"required"`
	EmployeeID uuid.UUID `json:"employee_id" validate:"required"`
}

// Rejection 一条被拒绝的分配
type Rejection struct {
	Assignment
	Reasons []constraint.ReasonCode `json:"reasons"`
}

// Intent 一条待落地的分配意图
type Intent struct {
	TenantID   uuid.UUID
	ShiftID    uuid.UUID
	EmployeeID uuid.UUID
	Audit      model.AssignmentAuditLog
	Feedback   *model.FeedbackRecord
}

// Decision 单条分配的判定结果，Intent 与 Reasons 二者只有一个非空
type Decision struct {
	Item    Assignment
	Intent  *Intent
	Reasons []constraint.ReasonCode
}

// Applied 是否可以落地
func (d *Decision) Applied() bool {
	return d.Intent != nil
}

// DecideInput 单条分配判定所需的上下文
type DecideInput struct {
	TenantID  uuid.UUID
	WeekStart time.Time
	Policy    eligibility.Policy
	Config    model.ScoringConfig
	Employees map[uuid.UUID]model.Employee
	ActorID   *uuid.UUID
	Now       time.Time
	// TopPick 非 nil 时直接作为引擎原推荐，不再重算候选池
	TopPick func(shiftID uuid.UUID) (*uuid.UUID, bool)
}

// Engine 分配决策引擎，只读数据并返回意图
type Engine struct {
	filter   *eligibility.Filter
	fairness *stats.FairnessAnalyzer
	coverage *stats.CoverageAnalyzer
}

// NewEngine 创建决策引擎，filter 为 nil 时使用默认检查
func NewEngine(filter *eligibility.Filter) *Engine {
	if filter == nil {
		filter = eligibility.NewFilter(nil)
	}
	return &Engine{
		filter:   filter,
		fairness: stats.NewFairnessAnalyzer(),
		coverage: stats.NewCoverageAnalyzer(),
	}
}

// Rank 对一个班次过滤并评分候选人
func (e *Engine) Rank(ctx context.Context, src eligibility.Source, shift model.Shift, employees []model.Employee, policy eligibility.Policy, cfg model.ScoringConfig) (*Ranking, error) {
	result, err := e.filter.Filter(ctx, src, shift, employees, policy)
	if err != nil {
		return nil, err
	}
	return &Ranking{
		Ranked:   scoring.Score(result.Eligible, cfg),
		Rejected: result.Rejected,
		Reasons:  result.AllReasons(),
	}, nil
}

// Preview 为目标周内未分配的班次生成推荐，不产生任何写入
func (e *Engine) Preview(ctx context.Context, store Store, in PreviewInput) (*Preview, error) {
	week := model.TargetWeek(in.WeekStart)

	weekShifts, err := store.ShiftsInWindow(ctx, in.TenantID, week)
	if err != nil {
		return nil, fmt.Errorf("查询周班次失败: %w", err)
	}
	employees, err := store.ActiveEmployees(ctx, in.TenantID)
	if err != nil {
		return nil, fmt.Errorf("查询在职员工失败: %w", err)
	}
	sortEmployees(employees)

	targets := previewTargets(weekShifts, in.IncludeOpenShifts)

	preview := &Preview{
		WeekStart:         in.WeekStart.Format(DateLayout),
		ScoringConfigUsed: in.Config,
		ShiftSuggestions:  make([]ShiftSuggestion, 0, len(targets)),
		UnfilledShifts:    []UnfilledShift{},
	}
	recs := make([]stats.Recommendation, 0, len(targets))

	for _, shift := range targets {
		ranking, err := e.Rank(ctx, store, shift, employees, in.Policy, in.Config)
		if err != nil {
			return nil, err
		}

		suggestion := ShiftSuggestion{
			ShiftID:    shift.ID,
			Candidates: ranking.Ranked,
			Notes:      []constraint.Note{},
		}
		if shift.IsOpen() && in.Policy.Settings.IsRecommendOnly() {
			suggestion.Notes = append(suggestion.Notes, constraint.NoteOpenShiftRecommendOnly)
		}

		if top := ranking.Top(); top != nil {
			id, score := top.EmployeeID, top.TotalScore
			suggestion.RecommendedEmployeeID = &id
			suggestion.RecommendedScore = &score
		} else {
			preview.UnfilledShifts = append(preview.UnfilledShifts, UnfilledShift{
				ShiftID: shift.ID,
				Reasons: unfilledReasons(ranking.Reasons),
			})
		}

		preview.ShiftSuggestions = append(preview.ShiftSuggestions, suggestion)
		recs = append(recs, stats.Recommendation{ShiftID: shift.ID, EmployeeID: suggestion.RecommendedEmployeeID})
	}

	shiftMap := make(map[uuid.UUID]model.Shift, len(weekShifts))
	for _, s := range weekShifts {
		shiftMap[s.ID] = s
	}
	employeeMap := make(map[uuid.UUID]model.Employee, len(employees))
	for _, emp := range employees {
		employeeMap[emp.ID] = emp
	}

	preview.FairnessSummary = stats.Summarize(recs, shiftMap, employeeMap)
	preview.FairnessMetrics = e.fairness.Analyze(preview.FairnessSummary, len(employees))
	preview.Coverage = e.coverage.Analyze(recs, shiftMap)

	return preview, nil
}

// Decide 判定一条分配能否落地
// 依次检查班次存在、目标周、员工在职、班次未被占用、资格；
// 通过后重算候选池确定原推荐，与所选员工不同则附带改选记录
func (e *Engine) Decide(ctx context.Context, store Store, in DecideInput, item Assignment) (*Decision, error) {
	reject := func(codes ...constraint.ReasonCode) *Decision {
		return &Decision{Item: item, Reasons: codes}
	}

	shift, err := store.GetShift(ctx, in.TenantID, item.ShiftID)
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	if shift == nil {
		return reject(constraint.ReasonShiftNotFound), nil
	}

	if !shift.Window().Overlaps(model.TargetWeek(in.WeekStart)) {
		return reject(constraint.ReasonShiftOutsideWeek), nil
	}

	employee, ok := in.Employees[item.EmployeeID]
	if !ok {
		return reject(constraint.ReasonEmployeeNotFound), nil
	}

	if !shift.IsUnassigned() {
		return reject(constraint.ReasonShiftAlreadyAssigned), nil
	}

	single, err := e.filter.Filter(ctx, store, *shift, []model.Employee{employee}, in.Policy)
	if err != nil {
		return nil, err
	}
	if len(single.Eligible) == 0 {
		return reject(unfilledReasons(single.AllReasons())...), nil
	}

	original, err := e.topPick(ctx, store, *shift, in)
	if err != nil {
		return nil, err
	}

	intent := &Intent{
		TenantID:   in.TenantID,
		ShiftID:    shift.ID,
		EmployeeID: employee.ID,
		Audit: model.AssignmentAuditLog{
			ID:         uuid.New(),
			TenantID:   in.TenantID,
			ShiftID:    shift.ID,
			EmployeeID: employee.ID,
			Action:     model.ActionAssignmentApplied,
			Details:    "week_start=" + in.WeekStart.Format(DateLayout),
			ActorID:    in.ActorID,
			CreatedAt:  in.Now,
		},
	}
	if original != nil {
		if rec, ok := feedback.NewRecord(in.TenantID, shift.ID, original, employee.ID, model.ReasonManualOverride, in.Now); ok {
			intent.Feedback = rec
		}
	}

	return &Decision{Item: item, Intent: intent}, nil
}

// topPick 返回引擎对该班次的原推荐，没有合格人选时为 nil
func (e *Engine) topPick(ctx context.Context, store Store, shift model.Shift, in DecideInput) (*uuid.UUID, error) {
	if in.TopPick != nil {
		if id, ok := in.TopPick(shift.ID); ok {
			return id, nil
		}
	}

	pool := make([]model.Employee, 0, len(in.Employees))
	for _, emp := range in.Employees {
		pool = append(pool, emp)
	}
	ranking, err := e.Rank(ctx, store, shift, pool, in.Policy, in.Config)
	if err != nil {
		return nil, err
	}
	top := ranking.Top()
	if top == nil {
		return nil, nil
	}
	id := top.EmployeeID
	return &id, nil
}

// previewTargets 未分配的非开放班次，按需加上未分配的开放班次，按 (开始时间, ID) 排序
func previewTargets(weekShifts []model.Shift, includeOpen bool) []model.Shift {
	targets := make([]model.Shift, 0, len(weekShifts))
	for _, s := range weekShifts {
		if !s.IsUnassigned() {
			continue
		}
		if s.IsOpen() && !includeOpen {
			continue
		}
		targets = append(targets, s)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if !targets[i].StartTime.Equal(targets[j].StartTime) {
			return targets[i].StartTime.Before(targets[j].StartTime)
		}
		return model.CompareIDs(targets[i].ID, targets[j].ID) < 0
	})
	return targets
}

func unfilledReasons(reasons []constraint.ReasonCode) []constraint.ReasonCode {
	if len(reasons) == 0 {
		return []constraint.ReasonCode{constraint.ReasonNoEligibleCandidates}
	}
	return reasons
}

func sortEmployees(employees []model.Employee) {
	sort.Slice(employees, func(i, j int) bool {
		return model.CompareIDs(employees[i].ID, employees[j].ID) < 0
	})
}
