// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/247void/twitterScraper/internal/clock"
)

// mapLookup 用固定表替代进程环境
func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// validConfig 默认配置加一个采集器
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Collectors = []CollectorConfig{{ID: "c1", Username: "bot", Password: "secret"}}
	return cfg
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithLookup(mapLookup(nil)).Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8000, cfg.Server.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Empty(t, cfg.Collectors)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
  read_timeout: 60s

database:
  driver: postgres
  name: tweets
  port: 5433

redis:
  enabled: true
  addr: "redis.example.com:6379"
  db: 1

rate_limit:
  ledger: redis
  threshold: 30
  max: 40
  soft_cooldown:
    min: 30s
    max: 90s

workflow:
  cooldown: 2m
  strict_params: false

collectors:
  - id: alpha
    username: alpha_bot
    password: pw
    workflow: timeline_focused
    max_accounts: 50
    verify_ssl: false
    proxy:
      type: socks5
      host: 10.0.0.1
      port: "1080"
    constants:
      ACCOUNTS_PER_BATCH: 5
      SCROLL_TIME_NEW: [2, 4]
  - id: beta
    username: beta_bot
    accounts_file: lists/beta.txt
`)

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithLookup(mapLookup(nil)).
		Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	// 未覆盖的值保留默认
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 1, cfg.Redis.DB)

	assert.Equal(t, LedgerRedis, cfg.RateLimit.Ledger)
	assert.Equal(t, 30, cfg.RateLimit.Threshold)
	assert.Equal(t, clock.Seconds(30, 90), cfg.RateLimit.SoftCooldown)
	assert.Equal(t, clock.Seconds(600, 900), cfg.RateLimit.HardCooldown)

	assert.Equal(t, 2*time.Minute, cfg.Workflow.Cooldown)
	assert.False(t, cfg.Workflow.StrictParams)

	require.Len(t, cfg.Collectors, 2)
	alpha := cfg.Collectors[0]
	assert.Equal(t, "alpha", alpha.ID)
	assert.Equal(t, "timeline_focused", alpha.Workflow)
	assert.Equal(t, 50, alpha.MaxAccounts)
	assert.False(t, alpha.SSLVerified())
	assert.Equal(t, "socks5", alpha.Proxy.Scheme())
	assert.Equal(t, 5, alpha.Constants["ACCOUNTS_PER_BATCH"])
	assert.Equal(t, []any{2, 4}, alpha.Constants["SCROLL_TIME_NEW"])
	assert.Equal(t, "accounts_alpha.txt", alpha.Accounts())

	beta, ok := cfg.Collector("beta")
	require.True(t, ok)
	assert.True(t, beta.SSLVerified())
	assert.Equal(t, "lists/beta.txt", beta.Accounts())
	assert.Equal(t, "beta_bot", beta.Credentials().Username)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	env := map[string]string{
		"COLLECTOR_SERVER_HTTP_PORT":                  "7777",
		"COLLECTOR_DATABASE_DRIVER":                   "mysql",
		"COLLECTOR_REDIS_ADDR":                        "env-redis:6379",
		"COLLECTOR_REDIS_ENABLED":                     "true",
		"COLLECTOR_LOG_LEVEL":                         "warn",
		"COLLECTOR_LOG_OUTPUT_PATHS":                  "stdout, /var/log/collector.log",
		"COLLECTOR_RATE_LIMIT_MIN_SPACING":            "3s",
		"COLLECTOR_RATE_LIMIT_PRE_CALL_COOLDOWN_MAX":  "25m",
		"COLLECTOR_WORKFLOW_MAX_CONSECUTIVE_FAILURES": "4",
		"COLLECTOR_TELEMETRY_SAMPLE_RATE":             "0.5",
		"COLLECTOR_SEARCH_CACHE_TTL":                  "10m",
	}

	cfg, err := NewLoader().WithLookup(mapLookup(env)).Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"stdout", "/var/log/collector.log"}, cfg.Log.OutputPaths)
	assert.Equal(t, 3*time.Second, cfg.RateLimit.MinSpacing)
	assert.Equal(t, 25*time.Minute, cfg.RateLimit.PreCallCooldown.Max)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.PreCallCooldown.Min)
	assert.Equal(t, 4, cfg.Workflow.MaxConsecutiveFailures)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL)
}

func TestLoader_ProcessEnv(t *testing.T) {
	t.Setenv("COLLECTOR_SERVER_HTTP_PORT", "6060")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.HTTPPort)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8888
  rate_limit_rps: 3
log:
  level: debug
`)

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithLookup(mapLookup(map[string]string{"COLLECTOR_SERVER_HTTP_PORT": "9999"})).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	// YAML 值应该保留
	assert.Equal(t, 3, cfg.Server.RateLimitRPS)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		WithLookup(mapLookup(map[string]string{
			"MYAPP_SERVER_HTTP_PORT":     "6666",
			"COLLECTOR_SERVER_HTTP_PORT": "1111",
		})).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	_, err := NewLoader().
		WithLookup(mapLookup(map[string]string{"COLLECTOR_WORKFLOW_COOLDOWN": "soon"})).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COLLECTOR_WORKFLOW_COOLDOWN")
}

func TestLoader_LegacyEnv(t *testing.T) {
	legacy := map[string]string{
		"TWITTER_USER":     "legacy_bot",
		"TWITTER_PASSWORD": "pw",
		"WORKFLOW":         "complete_workflow",
		"PROXY_HOST":       "proxy.local",
		"PROXY_PORT":       "3128",
		"PROXY_USERNAME":   "u",
		"PROXY_PASSWORD":   "p",
		"PROXY_TYPE":       "http",
		"VERIFY_SSL":       "false",
		"MAX_ACCOUNTS":     "25",
	}

	t.Run("创建默认采集器", func(t *testing.T) {
		cfg, err := NewLoader().WithLookup(mapLookup(legacy)).Load()
		require.NoError(t, err)
		require.Len(t, cfg.Collectors, 1)

		c := cfg.Collectors[0]
		assert.Equal(t, DefaultCollectorID, c.ID)
		assert.Equal(t, "legacy_bot", c.Username)
		assert.Equal(t, "pw", c.Password)
		assert.Equal(t, "complete_workflow", c.Workflow)
		assert.Equal(t, "proxy.local", c.Proxy.Host)
		assert.Equal(t, "3128", c.Proxy.Port)
		assert.Equal(t, "u", c.Proxy.Username)
		assert.False(t, c.SSLVerified())
		assert.Equal(t, 25, c.MaxAccounts)
		require.NoError(t, cfg.Validate())
	})

	t.Run("覆盖已有默认采集器", func(t *testing.T) {
		path := writeConfig(t, `
collectors:
  - id: other
    username: other_bot
  - id: default
    username: yaml_bot
    workflow: timeline_focused
`)
		cfg, err := NewLoader().
			WithConfigPath(path).
			WithLookup(mapLookup(map[string]string{"TWITTER_USER": "env_bot"})).
			Load()
		require.NoError(t, err)
		require.Len(t, cfg.Collectors, 2)

		def, ok := cfg.Collector(DefaultCollectorID)
		require.True(t, ok)
		assert.Equal(t, "env_bot", def.Username)
		assert.Equal(t, "timeline_focused", def.Workflow)

		other, _ := cfg.Collector("other")
		assert.Equal(t, "other_bot", other.Username)
	})

	t.Run("非法值", func(t *testing.T) {
		_, err := NewLoader().WithLookup(mapLookup(map[string]string{"MAX_ACCOUNTS": "many"})).Load()
		assert.Error(t, err)
		_, err = NewLoader().WithLookup(mapLookup(map[string]string{"VERIFY_SSL": "maybe"})).Load()
		assert.Error(t, err)
	})
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Server.HTTPPort < 1024 {
			return assert.AnError
		}
		return nil
	}

	_, err := NewLoader().
		WithLookup(mapLookup(map[string]string{"COLLECTOR_SERVER_HTTP_PORT": "80"})).
		WithValidator(validator).
		Load()
	assert.ErrorIs(t, err, assert.AnError)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		WithLookup(mapLookup(nil)).
		Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: [invalid
  this is not valid yaml
`)
	_, err := NewLoader().WithConfigPath(path).WithLookup(mapLookup(nil)).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "valid", modify: func(c *Config) {}},
		{
			name:    "invalid HTTP port",
			modify:  func(c *Config) { c.Server.HTTPPort = 70000 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "no collectors",
			modify:  func(c *Config) { c.Collectors = nil },
			wantErr: "at least one collector",
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "redis ledger without redis",
			modify:  func(c *Config) { c.RateLimit.Ledger = LedgerRedis },
			wantErr: "redis ledger requires redis.enabled",
		},
		{
			name:    "threshold above max",
			modify:  func(c *Config) { c.RateLimit.Threshold = 60 },
			wantErr: "rate_limit:",
		},
		{
			name: "duplicate collector",
			modify: func(c *Config) {
				c.Collectors = append(c.Collectors, CollectorConfig{ID: "c1", Username: "x"})
			},
			wantErr: `duplicate id "c1"`,
		},
		{
			name:    "unknown preset",
			modify:  func(c *Config) { c.Collectors[0].Workflow = "nope" },
			wantErr: "unknown workflow preset",
		},
		{
			name:    "proxy without port",
			modify:  func(c *Config) { c.Collectors[0].Proxy.Host = "p.local" },
			wantErr: "port is required",
		},
		{
			name:    "missing username",
			modify:  func(c *Config) { c.Collectors[0].Username = "" },
			wantErr: "username is required",
		},
		{
			name: "dry run needs no username",
			modify: func(c *Config) {
				c.Collectors[0].Username = ""
				c.Collectors[0].DryRun = true
			},
		},
		{
			name:    "unknown default search collector",
			modify:  func(c *Config) { c.Search.DefaultCollector = "ghost" },
			wantErr: "default_collector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateAggregates(t *testing.T) {
	cfg := validConfig()
	cfg.Server.HTTPPort = 0
	cfg.Database.Name = ""
	cfg.Search.CacheTTL = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"invalid HTTP port", "database name", "cache_ttl"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				User: "user", Password: "pass", Name: "dbname", SSLMode: "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: DatabaseConfig{
				Driver: "mysql", Host: "localhost", Port: 3306,
				User: "user", Password: "pass", Name: "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true&charset=utf8mb4",
		},
		{
			name:     "sqlite DSN",
			config:   DatabaseConfig{Driver: "sqlite", Name: "/path/to/db.sqlite"},
			expected: "/path/to/db.sqlite",
		},
		{
			name:     "unknown driver",
			config:   DatabaseConfig{Driver: "unknown"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad(t *testing.T) {
	good := writeConfig(t, "server:\n  http_port: 8081\n")
	assert.NotPanics(t, func() {
		cfg := MustLoad(good)
		assert.Equal(t, 8081, cfg.Server.HTTPPort)
	})

	bad := writeConfig(t, "invalid: [yaml")
	assert.Panics(t, func() { MustLoad(bad) })
}

func TestLoader_ControlSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  control_secret: from-file
`)
	cfg, err := NewLoader().WithConfigPath(path).WithLookup(mapLookup(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Server.ControlSecret)

	cfg, err = NewLoader().
		WithConfigPath(path).
		WithLookup(mapLookup(map[string]string{"COLLECTOR_SERVER_CONTROL_SECRET": "from-env"})).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.ControlSecret)

	// 默认不启用
	assert.Empty(t, DefaultConfig().Server.ControlSecret)
}
