package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/shiftassign/internal/handler"
	"github.com/paiban/shiftassign/internal/jobs"
	"github.com/paiban/shiftassign/internal/metrics"
	"github.com/paiban/shiftassign/internal/security"
	"github.com/paiban/shiftassign/pkg/logger"
)

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务",
	Long: `启动分配引擎 HTTP 服务，同时运行定时任务。

Endpoints:
  POST   /api/v1/assign/preview
  POST   /api/v1/assign/apply
  GET    /api/v1/assign/reason-codes
  GET    /api/v1/settings/scoring
  PUT    /api/v1/settings/scoring
  DELETE /api/v1/settings/scoring/threshold
  GET    /api/v1/scoring/optimization
  GET    /health, /version, /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "监听端口，覆盖配置")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "启动前执行数据库迁移")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.App.Port = servePort
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate && a.db != nil {
		if err := a.db.Migrate(); err != nil {
			return err
		}
	}

	limiter := security.NewRateLimiter(cfg.API.RateLimit, cfg.API.Burst)

	checks := map[string]handler.HealthChecker{}
	if a.db != nil {
		checks["database"] = a.db
	}
	if a.redis.Enabled() {
		checks["redis"] = a.redis
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	router := handler.NewRouter(handler.New(a.service, a.policies, a.advisor), handler.RouterConfig{
		Limiter:     limiter,
		Timeout:     cfg.API.Timeout,
		MetricsPath: metricsPath,
		Build:       handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		Checks:      checks,
	})

	scheduler, err := newScheduler(a, limiter)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("store", cfg.App.Store).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务器启动失败: %w", err)
	case <-quit:
	}

	logger.Info().Msg("正在关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}

	logger.Info().Msg("服务器已关闭")
	return nil
}

// newScheduler 注册建议任务和维护任务
func newScheduler(a *app, limiter *security.RateLimiter) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(10 * time.Minute)

	if spec := a.cfg.Engine.AdvisoryCron; spec != "" {
		sweep := jobs.NewAdvisorySweep(a.store, a.advisor, spec, logger.NewAssignLogger())
		if err := scheduler.Add(sweep); err != nil {
			return nil, err
		}
	}

	err := scheduler.Add(jobs.NewFuncJob("rate-limit-cleanup", "*/5 * * * *", func(ctx context.Context) error {
		if n := limiter.Cleanup(); n > 0 {
			logger.Debug().Int("removed", n).Msg("清理空闲限流桶")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	if a.db != nil {
		err := scheduler.Add(jobs.NewFuncJob("db-pool-stats", "* * * * *", func(ctx context.Context) error {
			stats := a.db.Stats()
			metrics.SetDBConnections(stats.InUse, stats.Idle)
			return nil
		}))
		if err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}
