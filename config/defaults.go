// =============================================================================
// 📦 Collector 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/247void/twitterScraper/ratelimit"
	"github.com/247void/twitterScraper/workflow"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		RateLimit: DefaultRateLimitConfig(),
		Workflow:  DefaultWorkflowConfig(),
		Search:    DefaultSearchConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		Name:            "data/twitter.db",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "collector:",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "twitter-collector",
		SampleRate:   0.1,
	}
}

// DefaultRateLimitConfig 返回生产环境节奏阈值
func DefaultRateLimitConfig() RateLimitConfig {
	l := ratelimit.DefaultConfig()
	return RateLimitConfig{
		Ledger:              LedgerSQL,
		LedgerRetention:     24 * time.Hour,
		Window:              l.Window,
		MinSpacing:          l.MinSpacing,
		Threshold:           l.Threshold,
		Max:                 l.Max,
		MaxCallsBeforeSleep: l.MaxCallsBeforeSleep,
		SoftCooldown:        l.SoftCooldown,
		HardCooldown:        l.HardCooldown,
		PreCallCooldown:     l.PreCallCooldown,
	}
}

// DefaultWorkflowConfig 返回默认引擎配置
func DefaultWorkflowConfig() WorkflowConfig {
	o := workflow.DefaultOptions()
	return WorkflowConfig{
		Cooldown:               o.Cooldown,
		PollInterval:           o.PollInterval,
		MaxConsecutiveFailures: o.MaxConsecutiveFailures,
		StrictParams:           true,
		DefaultPreset:          workflow.DefaultPreset,
	}
}

// DefaultSearchConfig 返回默认搜索配置
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		CacheTTL: 30 * time.Minute,
	}
}
