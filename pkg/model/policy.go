package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// 合同规则默认值
const (
	DefaultMinRestHours = 11.0
	DefaultMaxHoursDay  = 12.0
	DefaultMaxHoursWeek = 48.0
)

// ContractRule 租户合同规则
type ContractRule struct {
	TenantID     uuid.UUID `json:"tenant_id" db:"tenant_id"`
	MinRestHours float64   `json:"min_rest_hours" db:"min_rest_hours" validate:"gte=0"`
	MaxHoursDay  float64   `json:"max_hours_day" db:"max_hours_day" validate:"gte=0"`
	MaxHoursWeek float64   `json:"max_hours_week" db:"max_hours_week" validate:"gte=0"`
}

// DefaultContractRule 返回默认合同规则
func DefaultContractRule(tenantID uuid.UUID) ContractRule {
	return ContractRule{
		TenantID:     tenantID,
		MinRestHours: DefaultMinRestHours,
		MaxHoursDay:  DefaultMaxHoursDay,
		MaxHoursWeek: DefaultMaxHoursWeek,
	}
}

// OpenShiftMode 开放班次模式
type OpenShiftMode string

const (
	OpenShiftRecommendOnly OpenShiftMode = "RECOMMEND_ONLY"
	OpenShiftAutoAssign    OpenShiftMode = "AUTO_ASSIGN"
)

// TenantSchedulingSettings 租户排班设置
type TenantSchedulingSettings struct {
	TenantID      uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	OpenShiftMode OpenShiftMode `json:"open_shift_mode" db:"open_shift_mode"`
}

// DefaultTenantSchedulingSettings 返回默认排班设置
func DefaultTenantSchedulingSettings(tenantID uuid.UUID) TenantSchedulingSettings {
	return TenantSchedulingSettings{
		TenantID:      tenantID,
		OpenShiftMode: OpenShiftRecommendOnly,
	}
}

// IsAutoAssign 检查是否为自动分配模式
func (s TenantSchedulingSettings) IsAutoAssign() bool {
	return OpenShiftMode(strings.ToUpper(NormalizeTag(string(s.OpenShiftMode)))) == OpenShiftAutoAssign
}

// IsRecommendOnly 检查是否为仅推荐模式
func (s TenantSchedulingSettings) IsRecommendOnly() bool {
	return OpenShiftMode(strings.ToUpper(NormalizeTag(string(s.OpenShiftMode)))) == OpenShiftRecommendOnly
}

// Weights 七项评分权重
type Weights struct {
	Availability   float64 `json:"availability_weight" db:"availability_weight" validate:"gte=0"`
	SkillMatch     float64 `json:"skill_match_weight" db:"skill_match_weight" validate:"gte=0"`
	HoursBalance   float64 `json:"hours_balance_weight" db:"hours_balance_weight" validate:"gte=0"`
	RestMargin     float64 `json:"rest_margin_weight" db:"rest_margin_weight" validate:"gte=0"`
	WeekendBalance float64 `json:"weekend_balance_weight" db:"weekend_balance_weight" validate:"gte=0"`
	NightBalance   float64 `json:"night_balance_weight" db:"night_balance_weight" validate:"gte=0"`
	Preference     float64 `json:"preference_weight" db:"preference_weight" validate:"gte=0"`
}

// DefaultWeights 返回默认权重 25/25/20/15/10/10/5
func DefaultWeights() Weights {
	return Weights{
		Availability:   25,
		SkillMatch:     25,
		HoursBalance:   20,
		RestMargin:     15,
		WeekendBalance: 10,
		NightBalance:   10,
		Preference:     5,
	}
}

// ScoringConfig 租户评分配置
type ScoringConfig struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Weights
	MinScoreThreshold *float64  `json:"min_score_threshold" db:"min_score_threshold" validate:"omitempty,gte=0"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// SameVersion 判断两份配置是否为同一记录的同一版本
func (c ScoringConfig) SameVersion(other ScoringConfig) bool {
	if c.ID != other.ID || !c.UpdatedAt.Equal(other.UpdatedAt) || c.Weights != other.Weights {
		return false
	}
	if c.MinScoreThreshold == nil || other.MinScoreThreshold == nil {
		return c.MinScoreThreshold == nil && other.MinScoreThreshold == nil
	}
	return *c.MinScoreThreshold == *other.MinScoreThreshold
}

// DefaultScoringConfig 返回默认评分配置（无阈值）
func DefaultScoringConfig(tenantID uuid.UUID) ScoringConfig {
	now := time.Now().UTC()
	return ScoringConfig{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Weights:   DefaultWeights(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ScoringConfigPatch 评分配置的部分更新
// 只有非 nil 字段会被写入；清除阈值是单独的操作
type ScoringConfigPatch struct {
	AvailabilityWeight   *float64 `json:"availability_weight,omitempty" validate:"omitempty,gte=0"`
	SkillMatchWeight     *float64 `json:"skill_match_weight,omitempty" validate:"omitempty,gte=0"`
	HoursBalanceWeight   *float64 `json:"hours_balance_weight,omitempty" validate:"omitempty,gte=0"`
	RestMarginWeight     *float64 `json:"rest_margin_weight,omitempty" validate:"omitempty,gte=0"`
	WeekendBalanceWeight *float64 `json:"weekend_balance_weight,omitempty" validate:"omitempty,gte=0"`
	NightBalanceWeight   *float64 `json:"night_balance_weight,omitempty" validate:"omitempty,gte=0"`
	PreferenceWeight     *float64 `json:"preference_weight,omitempty" validate:"omitempty,gte=0"`
	MinScoreThreshold    *float64 `json:"min_score_threshold,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty 检查补丁是否不含任何字段
func (p ScoringConfigPatch) IsEmpty() bool {
	return p.AvailabilityWeight == nil && p.SkillMatchWeight == nil &&
		p.HoursBalanceWeight == nil && p.RestMarginWeight == nil &&
		p.WeekendBalanceWeight == nil && p.NightBalanceWeight == nil &&
		p.PreferenceWeight == nil && p.MinScoreThreshold == nil
}

// Apply 将补丁应用到配置副本上并返回结果
func (p ScoringConfigPatch) Apply(cfg ScoringConfig) ScoringConfig {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cfg.Availability, p.AvailabilityWeight)
	set(&cfg.SkillMatch, p.SkillMatchWeight)
	set(&cfg.HoursBalance, p.HoursBalanceWeight)
	set(&cfg.RestMargin, p.RestMarginWeight)
	set(&cfg.WeekendBalance, p.WeekendBalanceWeight)
	set(&cfg.NightBalance, p.NightBalanceWeight)
	set(&cfg.Preference, p.PreferenceWeight)
	if p.MinScoreThreshold != nil {
		v := *p.MinScoreThreshold
		cfg.MinScoreThreshold = &v
	}
	return cfg
}
