// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Env       string `yaml:"env" validate:"oneof=development test production"`
	Port      int    `yaml:"port" validate:"min=1,max=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error fatal"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`
	// Store 数据存储：postgres 或 memory（本地开发）
	Store string `yaml:"store" validate:"oneof=postgres memory"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	Name            string        `yaml:"name" validate:"required"`
	User            string        `yaml:"user" validate:"required"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	PoolSize int           `yaml:"pool_size" validate:"min=0"`
	TTL      time.Duration `yaml:"ttl"`
}

// Addr 返回Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfig API配置
type APIConfig struct {
	// RateLimit 每个租户每秒请求数，0 表示不限流
	RateLimit int           `yaml:"rate_limit" validate:"min=0"`
	Burst     int           `yaml:"burst" validate:"min=0"`
	Timeout   time.Duration `yaml:"timeout"`
}

// EngineConfig 分配引擎配置
type EngineConfig struct {
	FeedbackWindowDays int    `yaml:"feedback_window_days" validate:"min=1"`
	AdvisoryCron       string `yaml:"advisory_cron"`
	// PreviewCache 缓存周预览结果（需要启用 Redis）
	PreviewCache bool `yaml:"preview_cache"`
	// CachedTopPick 落地时复用缓存预览中的原推荐，默认每次重新计算
	CachedTopPick bool `yaml:"cached_top_pick"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 加载 .env（如存在）后从环境变量读取配置
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "shiftassign"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
			Store:     getEnv("APP_STORE", "postgres"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "paiban"),
			User:            getEnv("DB_USER", "paiban"),
			Password:        getEnv("DB_PASSWORD", "paiban123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
			TTL:      getEnvDuration("REDIS_TTL", 10*time.Minute),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Burst:     getEnvInt("API_RATE_BURST", 20),
			Timeout:   getEnvDuration("API_TIMEOUT", 30*time.Second),
		},
		Engine: EngineConfig{
			FeedbackWindowDays: getEnvInt("ENGINE_FEEDBACK_WINDOW_DAYS", 30),
			AdvisoryCron:       getEnv("ENGINE_ADVISORY_CRON", "0 6 * * 1"),
			PreviewCache:       getEnvBool("ENGINE_PREVIEW_CACHE", false),
			CachedTopPick:      getEnvBool("ENGINE_CACHED_TOP_PICK", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 在环境变量配置之上叠加 YAML 文件
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if cfg.Engine.PreviewCache && !cfg.Redis.Enabled {
		return fmt.Errorf("配置校验失败: engine.preview_cache 需要启用 redis")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// loadDotEnv 加载当前目录的 .env，已存在的环境变量不会被覆盖
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
