// Package feedback 记录人工改选并给出权重调整建议
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
)

const (
	// DefaultWindowDays 分析窗口天数
	DefaultWindowDays = 30
	// overrideThreshold 超过该改选次数才建议调整
	overrideThreshold = 5
	// weightIncrement 每次建议的权重增量
	weightIncrement = 5.0
	// maxWeight 建议权重上限
	maxWeight = 100.0
)

// Status 分析结论
type Status string

const (
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
	StatusAdjust           Status = "ADJUST"
	StatusStable           Status = "STABLE"
)

// Store 改选记录存储
type Store interface {
	AppendFeedback(ctx context.Context, rec *model.FeedbackRecord) error
	CountFeedbackSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error)
}

// ConfigSource 读取租户当前评分配置
type ConfigSource interface {
	EnsureScoringConfig(ctx context.Context, tenantID uuid.UUID) (model.ScoringConfig, error)
}

// NewRecord 构建改选记录；原推荐与最终人选相同时返回 false
func NewRecord(tenantID, shiftID uuid.UUID, original *uuid.UUID, final uuid.UUID, reason string, now time.Time) (*model.FeedbackRecord, bool) {
	if original != nil && *original == final {
		return nil, false
	}
	rec := &model.FeedbackRecord{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ShiftID:         shiftID,
		FinalEmployeeID: final,
		ChangeReason:    reason,
		CreatedAt:       now.UTC(),
	}
	if original != nil {
		o := *original
		rec.OriginalEmployeeID = &o
	}
	return rec, true
}

// Recorder 改选记录器
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder 创建改选记录器
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Capture 记录一次改选；相同人选时不写入并返回 nil
func (r *Recorder) Capture(ctx context.Context, tenantID, shiftID uuid.UUID, original *uuid.UUID, final uuid.UUID, reason string) (*model.FeedbackRecord, error) {
	rec, ok := NewRecord(tenantID, shiftID, original, final, reason, r.now())
	if !ok {
		return nil, nil
	}
	if err := r.store.AppendFeedback(ctx, rec); err != nil {
		return nil, fmt.Errorf("写入改选记录失败: %w", err)
	}
	return rec, nil
}

// WeightChanges 建议的权重调整
type WeightChanges struct {
	SkillMatchWeight float64 `json:"skill_match_weight"`
	PreferenceWeight float64 `json:"preference_weight"`
	Reason           string  `json:"reason"`
}

// Analysis 权重优化分析结果
type Analysis struct {
	TenantID               uuid.UUID      `json:"tenant_id"`
	Status                 Status         `json:"status"`
	AnalysisPeriodDays     int            `json:"analysis_period_days"`
	TotalOverrides         int            `json:"total_overrides"`
	SuggestionText         string         `json:"suggestion_text"`
	SuggestedWeightChanges *WeightChanges `json:"suggested_weight_changes,omitempty"`
}

// Advisor 权重优化顾问
// 只给建议，不修改配置
type Advisor struct {
	store      Store
	configs    ConfigSource
	windowDays int
	now        func() time.Time
}

// NewAdvisor 创建权重优化顾问，windowDays<=0 时使用默认 30 天
func NewAdvisor(store Store, configs ConfigSource, windowDays int) *Advisor {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Advisor{store: store, configs: configs, windowDays: windowDays, now: time.Now}
}

// WindowDays 返回分析窗口天数
func (a *Advisor) WindowDays() int {
	return a.windowDays
}

// Analyze 统计窗口内的改选次数并给出建议
func (a *Advisor) Analyze(ctx context.Context, tenantID uuid.UUID) (*Analysis, error) {
	since := a.now().UTC().AddDate(0, 0, -a.windowDays)
	count, err := a.store.CountFeedbackSince(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("统计改选记录失败: %w", err)
	}

	result := &Analysis{
		TenantID:           tenantID,
		AnalysisPeriodDays: a.windowDays,
		TotalOverrides:     count,
	}

	if count == 0 {
		result.Status = StatusInsufficientData
		result.SuggestionText = "No sufficient data to optimize weights."
		return result, nil
	}

	result.SuggestionText = fmt.Sprintf("Analyzed %d overrides in the last %d days.", count, a.windowDays)
	if count <= overrideThreshold {
		result.Status = StatusStable
		result.SuggestionText += " Model performance is stable."
		return result, nil
	}

	cfg, err := a.configs.EnsureScoringConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result.Status = StatusAdjust
	result.SuggestionText += " High override rate detected. Suggesting increased weight for attributes associated with manual selection."
	result.SuggestedWeightChanges = &WeightChanges{
		SkillMatchWeight: suggest(cfg.SkillMatch),
		PreferenceWeight: suggest(cfg.Preference),
		Reason:           "Frequent manual overrides suggest current model underestimates skills or preferences.",
	}
	return result, nil
}

func suggest(current float64) float64 {
	if v := current + weightIncrement; v < maxWeight {
		return v
	}
	return maxWeight
}
