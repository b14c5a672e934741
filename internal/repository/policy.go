package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/pkg/model"
)

const scoringColumns = `
	id, tenant_id, availability_weight, skill_match_weight, hours_balance_weight,
	rest_margin_weight, weekend_balance_weight, night_balance_weight, preference_weight,
	min_score_threshold, created_at, updated_at`

// PolicyRepository 租户合同规则、排班设置与评分配置仓储
type PolicyRepository struct {
	db DB
}

// NewPolicyRepository 创建租户策略仓储
func NewPolicyRepository(db DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetContractRule 未配置时返回 nil
func (r *PolicyRepository) GetContractRule(ctx context.Context, tenantID uuid.UUID) (*model.ContractRule, error) {
	query := `
		SELECT tenant_id, min_rest_hours, max_hours_day, max_hours_week
		FROM contract_rules
		WHERE tenant_id = $1
	`

	rule := &model.ContractRule{}
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&rule.TenantID, &rule.MinRestHours, &rule.MaxHoursDay, &rule.MaxHoursWeek,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询合同规则失败: %w", err)
	}
	return rule, nil
}

// GetSchedulingSettings 未配置时返回 nil
func (r *PolicyRepository) GetSchedulingSettings(ctx context.Context, tenantID uuid.UUID) (*model.TenantSchedulingSettings, error) {
	query := `SELECT tenant_id, open_shift_mode FROM tenant_scheduling_settings WHERE tenant_id = $1`

	settings := &model.TenantSchedulingSettings{}
	var mode string
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&settings.TenantID, &mode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询排班设置失败: %w", err)
	}
	settings.OpenShiftMode = model.OpenShiftMode(mode)
	return settings, nil
}

// GetScoringConfig 未配置时返回 nil
func (r *PolicyRepository) GetScoringConfig(ctx context.Context, tenantID uuid.UUID) (*model.ScoringConfig, error) {
	query := `SELECT ` + scoringColumns + ` FROM scoring_configs WHERE tenant_id = $1`

	cfg, err := scanScoringConfig(r.db.QueryRowContext(ctx, query, tenantID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询评分配置失败: %w", err)
	}
	return cfg, nil
}

// InsertScoringConfigIfAbsent 幂等插入，并发插入时以先提交者为准
func (r *PolicyRepository) InsertScoringConfigIfAbsent(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	query := `
		INSERT INTO scoring_configs (` + scoringColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID, cfg.TenantID, cfg.Availability, cfg.SkillMatch, cfg.HoursBalance,
		cfg.RestMargin, cfg.WeekendBalance, cfg.NightBalance, cfg.Preference,
		nullFloat(cfg.MinScoreThreshold), cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return model.ScoringConfig{}, fmt.Errorf("写入评分配置失败: %w", err)
	}

	stored, err := r.GetScoringConfig(ctx, cfg.TenantID)
	if err != nil {
		return model.ScoringConfig{}, err
	}
	if stored == nil {
		return model.ScoringConfig{}, fmt.Errorf("租户 %s 的评分配置写入后不可见", cfg.TenantID)
	}
	return *stored, nil
}

// SaveScoringConfig 保存评分配置
func (r *PolicyRepository) SaveScoringConfig(ctx context.Context, cfg model.ScoringConfig) error {
	query := `
		UPDATE scoring_configs SET
			availability_weight = $2, skill_match_weight = $3, hours_balance_weight = $4,
			rest_margin_weight = $5, weekend_balance_weight = $6, night_balance_weight = $7,
			preference_weight = $8, min_score_threshold = $9, updated_at = $10
		WHERE tenant_id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		cfg.TenantID, cfg.Availability, cfg.SkillMatch, cfg.HoursBalance,
		cfg.RestMargin, cfg.WeekendBalance, cfg.NightBalance, cfg.Preference,
		nullFloat(cfg.MinScoreThreshold), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("更新评分配置失败: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("读取评分配置影响行数失败: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("租户 %s 的评分配置不存在", cfg.TenantID)
	}
	return nil
}

func scanScoringConfig(row Scanner) (*model.ScoringConfig, error) {
	cfg := &model.ScoringConfig{}
	var threshold sql.NullFloat64

	if err := row.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.Availability, &cfg.SkillMatch, &cfg.HoursBalance,
		&cfg.RestMargin, &cfg.WeekendBalance, &cfg.NightBalance, &cfg.Preference,
		&threshold, &cfg.CreatedAt, &cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if threshold.Valid {
		v := threshold.Float64
		cfg.MinScoreThreshold = &v
	}
	return cfg, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
