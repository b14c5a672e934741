package commands

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/shiftassign/internal/jobs"
	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/logger"
)

var adviseTenant string

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "立即生成权重优化建议",
	Long: `分析近期有人工改选的租户并输出权重建议（JSON）。
只输出建议，不修改评分配置。

Example:
  shiftengine advise
  shiftengine advise --tenant 6f1c...`,
	RunE: runAdvise,
}

func init() {
	rootCmd.AddCommand(adviseCmd)

	adviseCmd.Flags().StringVar(&adviseTenant, "tenant", "", "只分析指定租户")
}

func runAdvise(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []*feedback.Analysis
	if adviseTenant != "" {
		tenantID, err := uuid.Parse(adviseTenant)
		if err != nil {
			return fmt.Errorf("无效的租户ID: %w", err)
		}
		analysis, err := a.advisor.Analyze(ctx, tenantID)
		if err != nil {
			return err
		}
		results = append(results, analysis)
	} else {
		sweep := jobs.NewAdvisorySweep(a.store, a.advisor, cfg.Engine.AdvisoryCron, logger.NewAssignLogger())
		results, err = sweep.Sweep(ctx)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
