// Package policy 提供租户策略：合同规则、排班设置和评分配置
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apperrors "github.com/paiban/shiftassign/pkg/errors"
	"github.com/paiban/shiftassign/pkg/model"
	"github.com/paiban/shiftassign/pkg/scheduler/eligibility"
)

// Store 策略数据访问
type Store interface {
	// GetContractRule 未配置时返回 nil
	GetContractRule(ctx context.Context, tenantID uuid.UUID) (*model.ContractRule, error)
	// GetSchedulingSettings 未配置时返回 nil
	GetSchedulingSettings(ctx context.Context, tenantID uuid.UUID) (*model.TenantSchedulingSettings, error)
	// GetScoringConfig 未配置时返回 nil
	GetScoringConfig(ctx context.Context, tenantID uuid.UUID) (*model.ScoringConfig, error)
	// InsertScoringConfigIfAbsent 幂等插入，返回最终存储的配置
	InsertScoringConfigIfAbsent(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error)
	SaveScoringConfig(ctx context.Context, cfg model.ScoringConfig) error
}

// Provider 租户策略提供者
type Provider struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
}

// NewProvider 创建策略提供者
func NewProvider(store Store) *Provider {
	return &Provider{
		store:    store,
		validate: validator.New(),
		now:      time.Now,
	}
}

// ContractRule 返回合同规则，未配置时返回默认值 11/12/48
func (p *Provider) ContractRule(ctx context.Context, tenantID uuid.UUID) (model.ContractRule, error) {
	rule, err := p.store.GetContractRule(ctx, tenantID)
	if err != nil {
		return model.ContractRule{}, fmt.Errorf("查询合同规则失败: %w", err)
	}
	if rule == nil {
		return model.DefaultContractRule(tenantID), nil
	}
	return *rule, nil
}

// SchedulingSettings 返回排班设置，未配置时为 RECOMMEND_ONLY
func (p *Provider) SchedulingSettings(ctx context.Context, tenantID uuid.UUID) (model.TenantSchedulingSettings, error) {
	settings, err := p.store.GetSchedulingSettings(ctx, tenantID)
	if err != nil {
		return model.TenantSchedulingSettings{}, fmt.Errorf("查询排班设置失败: %w", err)
	}
	if settings == nil {
		return model.DefaultTenantSchedulingSettings(tenantID), nil
	}
	return *settings, nil
}

// Policy 返回资格过滤所需的租户策略
func (p *Provider) Policy(ctx context.Context, tenantID uuid.UUID) (eligibility.Policy, error) {
	rule, err := p.ContractRule(ctx, tenantID)
	if err != nil {
		return eligibility.Policy{}, err
	}
	settings, err := p.SchedulingSettings(ctx, tenantID)
	if err != nil {
		return eligibility.Policy{}, err
	}
	return eligibility.Policy{Rule: rule, Settings: settings}, nil
}

// ScoringConfig 只读查询评分配置，未配置时返回默认值但不写入
func (p *Provider) ScoringConfig(ctx context.Context, tenantID uuid.UUID) (model.ScoringConfig, error) {
	cfg, err := p.store.GetScoringConfig(ctx, tenantID)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("查询评分配置失败: %w", err)
	}
	if cfg == nil {
		return model.DefaultScoringConfig(tenantID), nil
	}
	return *cfg, nil
}

// EnsureScoringConfig 返回评分配置，不存在时以默认值创建
// 并发调用只会产生一条记录
func (p *Provider) EnsureScoringConfig(ctx context.Context, tenantID uuid.UUID) (model.ScoringConfig, error) {
	cfg, err := p.store.GetScoringConfig(ctx, tenantID)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("查询评分配置失败: %w", err)
	}
	if cfg != nil {
		return *cfg, nil
	}

	def := model.DefaultScoringConfig(tenantID)
	now := p.now().UTC()
	def.CreatedAt, def.UpdatedAt = now, now

	stored, err := p.store.InsertScoringConfigIfAbsent(ctx, def)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("创建评分配置失败: %w", err)
	}
	return stored, nil
}

// UpdateScoringConfig 部分更新评分配置
// 只写入补丁中出现的字段；clearThreshold 为 true 时阈值被清除，优先于补丁中的阈值
func (p *Provider) UpdateScoringConfig(ctx context.Context, tenantID uuid.UUID, patch model.ScoringConfigPatch, clearThreshold bool) (model.ScoringConfig, error) {
	if err := p.validate.Struct(patch); err != nil {
		return model.ScoringConfig{}, apperrors.FromValidation(err)
	}

	cfg, err := p.EnsureScoringConfig(ctx, tenantID)
	if err != nil {
		return model.ScoringConfig{}, err
	}

	updated := patch.Apply(cfg)
	if clearThreshold {
		updated.MinScoreThreshold = nil
	}
	if err := p.validate.Struct(updated); err != nil {
		return model.ScoringConfig{}, apperrors.FromValidation(err)
	}
	updated.UpdatedAt = p.now().UTC()

	if err := p.store.SaveScoringConfig(ctx, updated); err != nil {
		return model.ScoringConfig{}, fmt.Errorf("保存评分配置失败: %w", err)
	}
	return updated, nil
}

// ClearScoreThreshold 清除最低分阈值
func (p *Provider) ClearScoreThreshold(ctx context.Context, tenantID uuid.UUID) (model.ScoringConfig, error) {
	return p.UpdateScoringConfig(ctx, tenantID, model.ScoringConfigPatch{}, true)
}
