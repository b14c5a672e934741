package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/paiban/shiftassign/internal/database"
)

var (
	migrateList bool
	migrateDown int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移",
	Long: `按版本顺序执行内置的 SQL 迁移，已执行的版本会被跳过。

Example:
  shiftengine migrate
  shiftengine migrate --down 1
  shiftengine migrate --list`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "只列出内置迁移文件")
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "回退指定数量的版本")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateList {
		names, err := database.Migrations()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateDown > 0 {
		return db.MigrateDown(migrateDown)
	}
	return db.Migrate()
}
