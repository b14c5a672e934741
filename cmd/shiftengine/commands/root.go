// Package commands 提供 shiftengine 命令行
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiban/shiftassign/internal/config"
	"github.com/paiban/shiftassign/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile string
	storeKind  string
)

var rootCmd = &cobra.Command{
	Use:   "shiftengine",
	Short: "排班分配决策引擎",
	Long: `shiftengine 为每周未分配的班次给出候选人排名，
并在人工确认后把分配落地为草稿。

Examples:
  shiftengine serve --config config.yaml
  shiftengine migrate
  shiftengine advise`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML 配置文件，叠加在环境变量之上")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "数据存储 postgres|memory，覆盖配置")
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if storeKind != "" {
		cfg.App.Store = storeKind
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	return cfg, nil
}
