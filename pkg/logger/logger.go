// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	tenantIDKey  ctxKey = "tenant_id"
)

// ContextWithRequestID 在上下文中记录请求ID
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithTenantID 在上下文中记录租户ID
func ContextWithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// RequestIDFromContext 读取请求ID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}

	if tenantID, ok := ctx.Value(tenantIDKey).(string); ok && tenantID != "" {
		l = l.With().Str("tenant_id", tenantID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// AssignLogger 分配引擎专用日志器
type AssignLogger struct {
	base *zerolog.Logger
}

// NewAssignLogger 创建分配引擎日志器
func NewAssignLogger() *AssignLogger {
	l := Get().With().Str("component", "assign").Logger()
	return &AssignLogger{base: &l}
}

// NewAssignLoggerFrom 基于指定日志器创建（测试时注入）
func NewAssignLoggerFrom(base zerolog.Logger) *AssignLogger {
	l := base.With().Str("component", "assign").Logger()
	return &AssignLogger{base: &l}
}

// StartPreview 记录预览开始
func (l *AssignLogger) StartPreview(tenantID, weekStart string, includeOpen bool) {
	l.base.Info().
		Str("tenant_id", tenantID).
		Str("week_start", weekStart).
		Bool("include_open_shifts", includeOpen).
		Msg("开始生成分配建议")
}

// PreviewComplete 记录预览完成
func (l *AssignLogger) PreviewComplete(tenantID string, duration time.Duration, recommended, unfilled int) {
	l.base.Info().
		Str("tenant_id", tenantID).
		Dur("duration", duration).
		Int("recommended", recommended).
		Int("unfilled", unfilled).
		Msg("分配建议生成完成")
}

// ItemRejected 记录单条分配被拒绝
func (l *AssignLogger) ItemRejected(tenantID, shiftID, employeeID string, reasons []string) {
	l.base.Warn().
		Str("tenant_id", tenantID).
		Str("shift_id", shiftID).
		Str("employee_id", employeeID).
		Strs("reasons", reasons).
		Msg("分配被拒绝")
}

// OverrideCaptured 记录人工改选
func (l *AssignLogger) OverrideCaptured(tenantID, shiftID, original, final string) {
	l.base.Info().
		Str("tenant_id", tenantID).
		Str("shift_id", shiftID).
		Str("original_employee_id", original).
		Str("final_employee_id", final).
		Msg("记录人工改选")
}

// ApplyComplete 记录批量落地完成
func (l *AssignLogger) ApplyComplete(tenantID string, applied, rejected int) {
	l.base.Info().
		Str("tenant_id", tenantID).
		Int("applied", applied).
		Int("rejected", rejected).
		Msg("分配落地完成")
}

// Advisory 记录权重调整建议
func (l *AssignLogger) Advisory(tenantID, status string, overrides int) {
	l.base.Info().
		Str("tenant_id", tenantID).
		Str("status", status).
		Int("overrides", overrides).
		Msg("权重优化建议")
}
