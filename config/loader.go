// =============================================================================
// 📦 Collector 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("COLLECTOR").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量 → 旧版环境变量（默认采集器）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/247void/twitterScraper/batch"
	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/ratelimit"
	"github.com/247void/twitterScraper/workflow"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是采集服务的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Database 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// RateLimit 平台调用节奏
	RateLimit RateLimitConfig `yaml:"rate_limit" env:"RATE_LIMIT"`

	// Workflow 工作流引擎配置
	Workflow WorkflowConfig `yaml:"workflow" env:"WORKFLOW"`

	// Search 按需搜索配置
	Search SearchConfig `yaml:"search" env:"SEARCH"`

	// Collectors 采集器身份列表（仅 YAML，默认采集器支持旧版环境变量）
	Collectors []CollectorConfig `yaml:"collectors" env:"-"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（搜索会等待平台调用，需留足余量）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个 IP 的请求速率
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发上限
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// HS256 密钥；非空时暂停/恢复接口要求 Bearer JWT
	ControlSecret string `yaml:"control_secret" env:"CONTROL_SECRET"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 下为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 启动时自动迁移表结构
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用；关闭时搜索缓存落库
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	// 键前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// 调用账本类型
const (
	LedgerSQL    = "sql"
	LedgerRedis  = "redis"
	LedgerMemory = "memory"
)

// RateLimitConfig 平台调用节奏配置（与 ratelimit.Config 对应）
type RateLimitConfig struct {
	// 账本类型: sql, redis, memory
	Ledger string `yaml:"ledger" env:"LEDGER"`
	// Redis 账本保留时长
	LedgerRetention time.Duration `yaml:"ledger_retention" env:"LEDGER_RETENTION"`

	Window              time.Duration `yaml:"window" env:"WINDOW"`
	MinSpacing          time.Duration `yaml:"min_spacing" env:"MIN_SPACING"`
	Threshold           int           `yaml:"threshold" env:"THRESHOLD"`
	Max                 int           `yaml:"max" env:"MAX"`
	MaxCallsBeforeSleep int           `yaml:"max_calls_before_sleep" env:"MAX_CALLS_BEFORE_SLEEP"`
	SoftCooldown        clock.Range   `yaml:"soft_cooldown" env:"SOFT_COOLDOWN"`
	HardCooldown        clock.Range   `yaml:"hard_cooldown" env:"HARD_COOLDOWN"`
	PreCallCooldown     clock.Range   `yaml:"pre_call_cooldown" env:"PRE_CALL_COOLDOWN"`
}

// Limits 转换为限流器配置
func (r RateLimitConfig) Limits() ratelimit.Config {
	return ratelimit.Config{
		Window:              r.Window,
		MinSpacing:          r.MinSpacing,
		Threshold:           r.Threshold,
		Max:                 r.Max,
		MaxCallsBeforeSleep: r.MaxCallsBeforeSleep,
		SoftCooldown:        r.SoftCooldown,
		HardCooldown:        r.HardCooldown,
		PreCallCooldown:     r.PreCallCooldown,
	}
}

// WorkflowConfig 工作流引擎配置
type WorkflowConfig struct {
	// 失败步骤重试前的冷却
	Cooldown time.Duration `yaml:"cooldown" env:"COOLDOWN"`
	// 暂停轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 同一步骤连续失败上限，0 表示无限重试
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" env:"MAX_CONSECUTIVE_FAILURES"`
	// 严格参数校验
	StrictParams bool `yaml:"strict_params" env:"STRICT_PARAMS"`
	// 默认预设名
	DefaultPreset string `yaml:"default_preset" env:"DEFAULT_PRESET"`
}

// EngineOptions 转换为引擎选项
func (w WorkflowConfig) EngineOptions() workflow.Options {
	return workflow.Options{
		Cooldown:               w.Cooldown,
		PollInterval:           w.PollInterval,
		MaxConsecutiveFailures: w.MaxConsecutiveFailures,
	}
}

// SearchConfig 按需搜索配置
type SearchConfig struct {
	// 结果缓存时长
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// 未指定 collector_id 时使用的采集器
	DefaultCollector string `yaml:"default_collector" env:"DEFAULT_COLLECTOR"`
}

// CollectorConfig 单个采集器身份
type CollectorConfig struct {
	ID           string               `yaml:"id"`
	Username     string               `yaml:"username"`
	Password     string               `yaml:"password"`
	Workflow     string               `yaml:"workflow"`
	WorkflowFile string               `yaml:"workflow_file"`
	AccountsFile string               `yaml:"accounts_file"`
	MaxAccounts  int                  `yaml:"max_accounts"`
	Proxy        platform.ProxyConfig `yaml:"proxy"`
	// VerifySSL 未设置时为 true
	VerifySSL *bool          `yaml:"verify_ssl"`
	Constants map[string]any `yaml:"constants"`
	// DryRun 使用模拟平台客户端，不访问网络
	DryRun bool `yaml:"dry_run"`
	// Seed 非零时固定随机序列
	Seed uint64 `yaml:"seed"`
}

// SSLVerified 返回是否校验证书
func (c CollectorConfig) SSLVerified() bool {
	return c.VerifySSL == nil || *c.VerifySSL
}

// Accounts 返回账号文件路径
func (c CollectorConfig) Accounts() string {
	if c.AccountsFile != "" {
		return c.AccountsFile
	}
	return batch.DefaultAccountsFile(c.ID)
}

// Credentials 返回登录凭据
func (c CollectorConfig) Credentials() platform.Credentials {
	return platform.Credentials{Username: c.Username, Password: c.Password}
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// DefaultCollectorID 是旧版环境变量作用的采集器
const DefaultCollectorID = "default"

// legacyEnv 旧版单采集器环境变量
var legacyEnv = []string{
	"TWITTER_USER", "TWITTER_PASSWORD", "WORKFLOW",
	"PROXY_HOST", "PROXY_PORT", "PROXY_USERNAME", "PROXY_PASSWORD", "PROXY_TYPE",
	"VERIFY_SSL", "MAX_ACCOUNTS",
}

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookup     func(string) (string, bool)
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "COLLECTOR",
		lookup:     os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookup 替换环境变量来源
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 旧版环境变量作用于默认采集器
	if err := l.applyLegacyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load legacy env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookup(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// applyLegacyEnv 把旧版变量写入默认采集器，不存在时创建
func (l *Loader) applyLegacyEnv(cfg *Config) error {
	set := make(map[string]string)
	for _, key := range legacyEnv {
		if v, ok := l.lookup(key); ok && v != "" {
			set[key] = v
		}
	}
	if len(set) == 0 {
		return nil
	}

	idx := -1
	for i := range cfg.Collectors {
		if cfg.Collectors[i].ID == DefaultCollectorID {
			idx = i
			break
		}
	}
	if idx < 0 {
		cfg.Collectors = append(cfg.Collectors, CollectorConfig{ID: DefaultCollectorID})
		idx = len(cfg.Collectors) - 1
	}
	c := &cfg.Collectors[idx]

	for key, v := range set {
		switch key {
		case "TWITTER_USER":
			c.Username = v
		case "TWITTER_PASSWORD":
			c.Password = v
		case "WORKFLOW":
			c.Workflow = v
		case "PROXY_HOST":
			c.Proxy.Host = v
		case "PROXY_PORT":
			c.Proxy.Port = v
		case "PROXY_USERNAME":
			c.Proxy.Username = v
		case "PROXY_PASSWORD":
			c.Proxy.Password = v
		case "PROXY_TYPE":
			c.Proxy.Type = v
		case "VERIFY_SSL":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("VERIFY_SSL: %w", err)
			}
			c.VerifySSL = &b
		case "MAX_ACCOUNTS":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("MAX_ACCOUNTS: %w", err)
			}
			c.MaxAccounts = n
		}
	}
	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Collector 按 ID 查找采集器配置
func (c *Config) Collector(id string) (CollectorConfig, bool) {
	for _, col := range c.Collectors {
		if col.ID == id {
			return col, true
		}
	}
	return CollectorConfig{}, false
}

// Validate 验证配置，汇总所有错误
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		errs = append(errs, "rate_limit_rps and rate_limit_burst must be positive")
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Name == "" {
		errs = append(errs, "database name is required")
	}

	switch c.RateLimit.Ledger {
	case LedgerSQL, LedgerMemory:
	case LedgerRedis:
		if !c.Redis.Enabled {
			errs = append(errs, "redis ledger requires redis.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown rate_limit ledger %q", c.RateLimit.Ledger))
	}
	if err := c.RateLimit.Limits().Validate(); err != nil {
		errs = append(errs, "rate_limit: "+err.Error())
	}

	if c.Workflow.Cooldown < 0 || c.Workflow.PollInterval <= 0 {
		errs = append(errs, "workflow cooldown must not be negative and poll_interval must be positive")
	}
	if c.Search.CacheTTL <= 0 {
		errs = append(errs, "search cache_ttl must be positive")
	}

	if len(c.Collectors) == 0 {
		errs = append(errs, "at least one collector is required")
	}
	seen := make(map[string]bool)
	for i, col := range c.Collectors {
		if col.ID == "" {
			errs = append(errs, fmt.Sprintf("collectors[%d]: id is required", i))
			continue
		}
		if seen[col.ID] {
			errs = append(errs, fmt.Sprintf("collectors[%d]: duplicate id %q", i, col.ID))
		}
		seen[col.ID] = true
		if col.Username == "" && !col.DryRun {
			errs = append(errs, fmt.Sprintf("collector %s: username is required", col.ID))
		}
		if col.MaxAccounts < 0 {
			errs = append(errs, fmt.Sprintf("collector %s: max_accounts must not be negative", col.ID))
		}
		if col.WorkflowFile == "" && col.Workflow != "" {
			if _, err := workflow.Preset(col.Workflow); err != nil {
				errs = append(errs, fmt.Sprintf("collector %s: %v", col.ID, err))
			}
		}
		if _, err := col.Proxy.URL(); err != nil {
			errs = append(errs, fmt.Sprintf("collector %s: %v", col.ID, err))
		}
	}
	if d := c.Search.DefaultCollector; d != "" && !seen[d] {
		errs = append(errs, fmt.Sprintf("search default_collector %q is not configured", d))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
