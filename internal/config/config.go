// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/zhoupai/zhoupai/pkg/scheduler/solver"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SchedulerConfig 排班核心配置
type SchedulerConfig struct {
	DefaultStrategy     string        `yaml:"default_strategy"`      // greedy/exact
	SlotDurationMinutes int           `yaml:"slot_duration_minutes"` // 必须整除60
	DayStartHour        int           `yaml:"day_start_hour"`
	DayEndHour          int           `yaml:"day_end_hour"`
	MinShiftHours       int           `yaml:"min_shift_hours"`
	MaxRegularHours     int           `yaml:"max_regular_hours"`
	MaxManagerHours     int           `yaml:"max_manager_hours"`
	MinRestHours        int           `yaml:"min_rest_hours"`
	TimeBudget          time.Duration `yaml:"time_budget"`
	MaxVariables        int           `yaml:"max_variables"`
}

// SolverOptions 转换为求解器参数（权重使用默认值）
func (c *SchedulerConfig) SolverOptions() solver.Options {
	opts := solver.DefaultOptions()
	opts.SlotDurationMinutes = c.SlotDurationMinutes
	opts.DayStartHour = c.DayStartHour
	opts.DayEndHour = c.DayEndHour
	opts.MinShiftHours = c.MinShiftHours
	opts.MaxRegularHours = c.MaxRegularHours
	opts.MaxManagerHours = c.MaxManagerHours
	opts.MinRestHours = c.MinRestHours
	opts.TimeBudget = c.TimeBudget
	opts.MaxVariables = c.MaxVariables
	return opts
}

// Strategy 返回默认求解策略
func (c *SchedulerConfig) Strategy() solver.Strategy {
	if c.DefaultStrategy == "exact" {
		return solver.StrategyExact
	}
	return solver.StrategyGreedy
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "zhoupai"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7012),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "zhoupai"),
			User:            getEnv("DB_USER", "zhoupai"),
			Password:        getEnv("DB_PASSWORD", "zhoupai123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			DefaultStrategy:     getEnv("SCHEDULER_STRATEGY", "greedy"),
			SlotDurationMinutes: getEnvInt("SCHEDULER_SLOT_MINUTES", 60),
			DayStartHour:        getEnvInt("SCHEDULER_DAY_START_HOUR", 6),
			DayEndHour:          getEnvInt("SCHEDULER_DAY_END_HOUR", 22),
			MinShiftHours:       getEnvInt("SCHEDULER_MIN_SHIFT_HOURS", 4),
			MaxRegularHours:     getEnvInt("SCHEDULER_MAX_REGULAR_HOURS", 9),
			MaxManagerHours:     getEnvInt("SCHEDULER_MAX_MANAGER_HOURS", 12),
			MinRestHours:        getEnvInt("SCHEDULER_MIN_REST_HOURS", 12),
			TimeBudget:          getEnvDuration("SCHEDULER_TIME_BUDGET", 120*time.Second),
			MaxVariables:        getEnvInt("SCHEDULER_MAX_VARIABLES", 100000),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
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
