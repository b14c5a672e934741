package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/logger"
)

// TenantSource 列出近期有改选记录的租户
type TenantSource interface {
	TenantsWithFeedbackSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// AdvisorySweep 定期为近期有改选的租户生成权重建议并记录日志
// 只产出建议，从不修改评分配置
type AdvisorySweep struct {
	tenants  TenantSource
	advisor  *feedback.Advisor
	schedule string
	log      *logger.AssignLogger
	now      func() time.Time
}

// NewAdvisorySweep 创建建议任务
func NewAdvisorySweep(tenants TenantSource, advisor *feedback.Advisor, schedule string, log *logger.AssignLogger) *AdvisorySweep {
	if log == nil {
		log = logger.NewAssignLogger()
	}
	return &AdvisorySweep{
		tenants:  tenants,
		advisor:  advisor,
		schedule: schedule,
		log:      log,
		now:      time.Now,
	}
}

// Name 任务名称
func (j *AdvisorySweep) Name() string { return "advisory-sweep" }

// Schedule cron 表达式
func (j *AdvisorySweep) Schedule() string { return j.schedule }

// Run 执行一次
func (j *AdvisorySweep) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep 分析所有近期有改选的租户，单个租户失败不影响其他租户
func (j *AdvisorySweep) Sweep(ctx context.Context) ([]*feedback.Analysis, error) {
	since := j.now().UTC().AddDate(0, 0, -j.advisor.WindowDays())
	tenants, err := j.tenants.TenantsWithFeedbackSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("列出租户失败: %w", err)
	}

	var (
		results []*feedback.Analysis
		failed  int
	)
	for _, tenantID := range tenants {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		analysis, err := j.advisor.Analyze(ctx, tenantID)
		if err != nil {
			failed++
			logger.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("权重分析失败")
			continue
		}
		j.log.Advisory(tenantID.String(), string(analysis.Status), analysis.TotalOverrides)
		metrics.RecordAdvisory(string(analysis.Status))
		results = append(results, analysis)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d 个租户分析失败", failed)
	}
	return results, nil
}
