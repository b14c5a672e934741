package commands

import (
	"context"
	"fmt"

	"github.com/paiban/shiftassign/internal/cache"
	"github.com/paiban/shiftassign/internal/config"
	"github.com/paiban/shiftassign/internal/database"
	"github.com/paiban/shiftassign/internal/jobs"
	"github.com/paiban/shiftassign/internal/policy"
	"github.com/paiban/shiftassign/internal/repository"
	"github.com/paiban/shiftassign/internal/repository/memstore"
	"github.com/paiban/shiftassign/pkg/assign"
	"github.com/paiban/shiftassign/pkg/feedback"
	"github.com/paiban/shiftassign/pkg/logger"
)

// backend 存储实现需要满足的全部接口
type backend interface {
	assign.Store
	assign.TxRunner
	policy.Store
	jobs.TenantSource
}

var (
	_ backend = (*repository.Store)(nil)
	_ backend = (*memstore.Store)(nil)
)

// app 组装好的服务依赖
type app struct {
	cfg      *config.Config
	db       *database.DB
	redis    *cache.Client
	store    backend
	policies *policy.Provider
	service  *assign.Service
	advisor  *feedback.Advisor
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.App.Store {
	case "memory":
		logger.Warn().Msg("使用内存存储，数据不会持久化")
		a.store = memstore.New()
	default:
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.store = repository.New(db)
	}

	client, err := cache.NewClient(ctx, &cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = client

	a.policies = policy.NewProvider(a.store)
	opts := []assign.Option{}
	if cfg.Engine.PreviewCache {
		opts = append(opts, assign.WithCache(cache.NewPreviewCache(client, cfg.Redis.TTL), cfg.Engine.CachedTopPick))
	}
	a.service = assign.NewService(a.store, a.store, a.policies, opts...)
	a.advisor = feedback.NewAdvisor(a.store, a.policies, cfg.Engine.FeedbackWindowDays)
	return a, nil
}

// openDB 只打开数据库，供不需要完整服务的子命令使用
func openDB(cfg *config.Config) (*database.DB, error) {
	if cfg.App.Store != "postgres" {
		return nil, fmt.Errorf("当前存储为 %s，该命令需要 postgres", cfg.App.Store)
	}
	return database.New(&cfg.Database)
}

// Close 释放连接
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭 redis 连接失败")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭数据库连接失败")
		}
	}
}
