package assign

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/logger"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/constraint"
)

// ApplyTargetDraft 唯一支持的落地目标
const ApplyTargetDraft = "DRAFT"

// PreviewRequest 预览请求
type PreviewRequest struct {
	TenantID          uuid.UUID
	WeekStart         time.Time
	IncludeOpenShifts bool
}

// ApplyRequest 落地请求
type ApplyRequest struct {
	TenantID    uuid.UUID
	WeekStart   time.Time
	ApplyTarget string
	Assignments []Assignment
	ActorID     *uuid.UUID
}

// ApplyResult 落地结果
type ApplyResult struct {
	Applied  []Assignment `json:"applied"`
	Rejected []Rejection  `json:"rejected"`
	// Overrides 本次写入的改选记录数
	Overrides int `json:"-"`
}

// Service 预览与落地服务
type Service struct {
	store    Store
	tx       TxRunner
	policies PolicyProvider
	engine   *Engine
	cache    PreviewCache
	// cachedTopPick 落地时使用缓存预览中的原推荐，而不是重新计算
	cachedTopPick bool
	log           *logger.AssignLogger
	now           func() time.Time
}

// Option 服务选项
type Option func(*Service)

// WithEngine 指定决策引擎
func WithEngine(engine *Engine) Option {
	return func(s *Service) { s.engine = engine }
}

// WithCache 启用预览缓存；useTopPick 为 true 时落地复用缓存中的原推荐
func WithCache(cache PreviewCache, useTopPick bool) Option {
	return func(s *Service) {
		s.cache = cache
		s.cachedTopPick = useTopPick
	}
}

// WithLogger 指定日志器
func WithLogger(l *logger.AssignLogger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock 指定时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建服务
func NewService(store Store, tx TxRunner, policies PolicyProvider, opts ...Option) *Service {
	s := &Service{
		store:    store,
		tx:       tx,
		policies: policies,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewEngine(nil)
	}
	if s.log == nil {
		s.log = logger.NewAssignLogger()
	}
	return s
}

// Preview 生成周排班预览
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*Preview, error) {
	weekLabel := req.WeekStart.Format(DateLayout)
	tenant := req.TenantID.String()

	policy, err := s.policies.Policy(ctx, req.TenantID)
	if err != nil {
		return nil, apperrors.Database(err, "读取租户策略失败")
	}
	cfg, err := s.policies.EnsureScoringConfig(ctx, req.TenantID)
	if err != nil {
		return nil, apperrors.Database(err, "读取评分配置失败")
	}

	if s.cache != nil && req.IncludeOpenShifts {
		if cached := s.cachedPreview(ctx, req.TenantID, weekLabel, cfg); cached != nil {
			return cached, nil
		}
	}

	start := s.now()
	s.log.StartPreview(tenant, weekLabel, req.IncludeOpenShifts)

	preview, err := s.engine.Preview(ctx, s.store, PreviewInput{
		TenantID:          req.TenantID,
		WeekStart:         req.WeekStart,
		IncludeOpenShifts: req.IncludeOpenShifts,
		Policy:            policy,
		Config:            cfg,
	})
	if err != nil {
		return nil, apperrors.Database(err, "生成预览失败")
	}

	s.log.PreviewComplete(tenant, s.now().Sub(start), len(preview.ShiftSuggestions)-len(preview.UnfilledShifts), len(preview.UnfilledShifts))

	// 只缓存包含开放班次的完整预览，落地复用原推荐时需要覆盖全部目标班次
	if s.cache != nil && req.IncludeOpenShifts {
		if err := s.cache.Set(ctx, req.TenantID, weekLabel, preview); err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("tenant_id", tenant).Msg("写入预览缓存失败")
		}
	}
	return preview, nil
}

// Apply 逐条落地人工确认的分配
// 单条被拒不影响其他条目；所有写入在同一事务内提交，数据访问失败时整体回滚
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	if !strings.EqualFold(strings.TrimSpace(req.ApplyTarget), ApplyTargetDraft) {
		return nil, apperrors.UnsupportedApplyTarget(req.ApplyTarget)
	}

	tenant := req.TenantID.String()
	weekLabel := req.WeekStart.Format(DateLayout)

	policy, err := s.policies.Policy(ctx, req.TenantID)
	if err != nil {
		return nil, apperrors.Database(err, "读取租户策略失败")
	}
	cfg, err := s.policies.EnsureScoringConfig(ctx, req.TenantID)
	if err != nil {
		return nil, apperrors.Database(err, "读取评分配置失败")
	}

	topPick := s.cachedTopPickFunc(ctx, req.TenantID, weekLabel, cfg)

	var result *ApplyResult
	err = s.tx.InTx(ctx, func(store Store) error {
		result = &ApplyResult{Applied: []Assignment{}, Rejected: []Rejection{}}

		active, err := store.ActiveEmployees(ctx, req.TenantID)
		if err != nil {
			return err
		}
		employees := make(map[uuid.UUID]model.Employee, len(active))
		for _, emp := range active {
			employees[emp.ID] = emp
		}

		in := DecideInput{
			TenantID:  req.TenantID,
			WeekStart: req.WeekStart,
			Policy:    policy,
			Config:    cfg,
			Employees: employees,
			ActorID:   req.ActorID,
			Now:       s.now().UTC(),
			TopPick:   topPick,
		}

		for _, item := range req.Assignments {
			decision, err := s.engine.Decide(ctx, store, in, item)
			if err != nil {
				return err
			}
			if !decision.Applied() {
				result.Rejected = append(result.Rejected, Rejection{Assignment: item, Reasons: decision.Reasons})
				s.log.ItemRejected(tenant, item.ShiftID.String(), item.EmployeeID.String(), constraint.ToStrings(decision.Reasons))
				continue
			}
			if err := s.persist(ctx, store, decision.Intent); err != nil {
				if !errors.Is(err, ErrShiftAlreadyAssigned) {
					return err
				}
				// 并发落地已抢先写入
				reasons := []constraint.ReasonCode{constraint.ReasonShiftAlreadyAssigned}
				result.Rejected = append(result.Rejected, Rejection{Assignment: item, Reasons: reasons})
				s.log.ItemRejected(tenant, item.ShiftID.String(), item.EmployeeID.String(), constraint.ToStrings(reasons))
				continue
			}
			if fb := decision.Intent.Feedback; fb != nil {
				result.Overrides++
				s.log.OverrideCaptured(tenant, fb.ShiftID.String(), fb.OriginalEmployeeID.String(), fb.FinalEmployeeID.String())
			}
			result.Applied = append(result.Applied, item)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Database(err, "落地分配失败")
	}

	if s.cache != nil && len(result.Applied) > 0 {
		if err := s.cache.Invalidate(ctx, req.TenantID, weekLabel); err != nil {
			logger.WithContext(ctx).Warn().Err(err).Str("tenant_id", tenant).Msg("清除预览缓存失败")
		}
	}

	s.log.ApplyComplete(tenant, len(result.Applied), len(result.Rejected))
	return result, nil
}

// persist 写入一条分配意图，先占用班次再写改选记录和审计
func (s *Service) persist(ctx context.Context, store Store, intent *Intent) error {
	if err := store.AssignDraft(ctx, intent.TenantID, intent.ShiftID, intent.EmployeeID); err != nil {
		return err
	}
	if intent.Feedback != nil {
		if err := store.AppendFeedback(ctx, intent.Feedback); err != nil {
			return err
		}
	}
	audit := intent.Audit
	return store.AppendAuditLog(ctx, &audit)
}

// cachedPreview 返回按当前评分配置生成的缓存预览
// 配置在缓存之后被修改时视为未命中
func (s *Service) cachedPreview(ctx context.Context, tenantID uuid.UUID, weekLabel string, cfg model.ScoringConfig) *Preview {
	cached, ok, err := s.cache.Get(ctx, tenantID, weekLabel)
	if err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("读取预览缓存失败")
		return nil
	}
	if !ok {
		return nil
	}
	if !cached.ScoringConfigUsed.SameVersion(cfg) {
		logger.WithContext(ctx).Debug().Str("tenant_id", tenantID.String()).Str("week_start", weekLabel).Msg("评分配置已变更，忽略缓存预览")
		return nil
	}
	return cached
}

// cachedTopPickFunc 返回基于缓存预览的原推荐查找函数，未启用或缓存过期时返回 nil
func (s *Service) cachedTopPickFunc(ctx context.Context, tenantID uuid.UUID, weekLabel string, cfg model.ScoringConfig) func(uuid.UUID) (*uuid.UUID, bool) {
	if s.cache == nil || !s.cachedTopPick {
		return nil
	}
	preview := s.cachedPreview(ctx, tenantID, weekLabel, cfg)
	if preview == nil {
		return nil
	}
	return func(shiftID uuid.UUID) (*uuid.UUID, bool) {
		suggestion, ok := preview.Suggestion(shiftID)
		if !ok {
			return nil, false
		}
		return suggestion.RecommendedEmployeeID, true
	}
}
