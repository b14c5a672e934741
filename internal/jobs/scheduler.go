// Package jobs 提供定时任务调度
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/paiban/shiftassign/pkg/logger"
)

// Job 定时任务
type Job interface {
	// Name 任务名称
	Name() string
	// Schedule 标准五段 cron 表达式，如 "0 6 * * 1"
	Schedule() string
	// Run 执行一次
	Run(ctx context.Context) error
}

type funcJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Schedule() string              { return j.schedule }
func (j *funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// NewFuncJob 用函数构造任务
func NewFuncJob(name, schedule string, fn func(ctx context.Context) error) Job {
	return &funcJob{name: name, schedule: schedule, fn: fn}
}

// Result 一次执行结果
type Result struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory 每个任务保留的执行记录数
const maxHistory = 50

// Scheduler 基于 cron 的任务调度器
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	jobs    map[string]Job
	history map[string][]Result
	mu      sync.RWMutex
}

// NewScheduler 创建调度器，timeout 为单次执行的超时
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		timeout: timeout,
		jobs:    make(map[string]Job),
		history: make(map[string][]Result),
	}
}

// Add 注册任务
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("任务 %s 已存在", name)
	}
	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.run(job) }); err != nil {
		return fmt.Errorf("注册任务 %s 失败: %w", name, err)
	}
	s.jobs[name] = job

	logger.Info().Str("job", name).Str("schedule", job.Schedule()).Msg("定时任务已注册")
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info().Msg("定时任务已停止")
}

// RunNow 立即同步执行指定任务
func (s *Scheduler) RunNow(name string) (Result, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("任务 %s 不存在", name)
	}
	return s.run(job), nil
}

// History 返回任务的执行记录，新的在后
func (s *Scheduler) History(name string) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Result(nil), s.history[name]...)
}

func (s *Scheduler) run(job Job) Result {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	result := Result{
		JobName:   job.Name(),
		StartTime: start,
		Duration:  time.Since(start),
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
		logger.Error().Err(err).Str("job", job.Name()).Msg("定时任务失败")
	} else {
		logger.Info().Str("job", job.Name()).Dur("duration", result.Duration).Msg("定时任务完成")
	}

	s.mu.Lock()
	h := append(s.history[job.Name()], result)
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	s.history[job.Name()] = h
	s.mu.Unlock()

	return result
}
