package main

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/247void/twitterScraper/api/handlers"
	"github.com/247void/twitterScraper/batch"
	"github.com/247void/twitterScraper/collector"
	"github.com/247void/twitterScraper/config"
	"github.com/247void/twitterScraper/internal/cache"
	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/internal/database"
	"github.com/247void/twitterScraper/internal/metrics"
	"github.com/247void/twitterScraper/internal/server"
	"github.com/247void/twitterScraper/internal/telemetry"
	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/ratelimit"
	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/workflow"
)

// =============================================================================
// 🧩 应用装配
// =============================================================================

// AppOptions 装配时可替换的依赖，测试使用
type AppOptions struct {
	Verifier collector.Verifier
	// Clock 为 nil 时使用系统时间
	Clock clock.Clock
	// MetricsNamespace 为空时使用 "collector"
	MetricsNamespace string
	// ClientFactory 为非 dry_run 采集器创建真实平台客户端，
	// transport 已按 proxy 与 verify_ssl 配置好
	ClientFactory ClientFactory
}

// ClientFactory 创建平台客户端
type ClientFactory func(cc config.CollectorConfig, transport *http.Transport) (platform.Client, error)

// App 持有一次 serve 运行所需的全部组件
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	metrics    *metrics.Collector
	telemetry  *telemetry.Providers
	pool       *database.PoolManager
	store      *store.Store
	cache      *cache.Manager
	limiter    *ratelimit.Limiter
	collectors []*collector.Collector
	search     cache.SearchStore
	server     *server.Manager
	handler    http.Handler

	// 限流中间件清理协程随 Close 结束
	cancel context.CancelFunc
}

// NewApp 按配置装配存储、限流、采集器与 HTTP 服务。
// 任一步骤失败都会释放已创建的资源。
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts AppOptions) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ns := opts.MetricsNamespace
	if ns == "" {
		ns = "collector"
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	ctx, cancel := context.WithCancel(ctx)
	app := &App{cfg: cfg, logger: logger, cancel: cancel}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.metrics = metrics.NewCollector(ns, logger)

	ids := make([]string, 0, len(cfg.Collectors))
	for _, cc := range cfg.Collectors {
		ids = append(ids, cc.ID)
	}
	app.telemetry, err = telemetry.Init(cfg.Telemetry, logger, ids...)
	if err != nil {
		// 遥测不可用不影响采集
		logger.Warn("telemetry disabled", zap.Error(err))
		app.telemetry, err = nil, nil
	}

	// 💾 数据库
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, err
	}
	poolCfg := database.DefaultPoolConfig()
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}
	if err = poolCfg.Validate(); err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	app.pool, err = database.NewPoolManager(db, poolCfg, logger)
	if err != nil {
		return nil, err
	}
	app.pool.SetMetrics(app.metrics)
	if cfg.Database.AutoMigrate {
		if err = app.pool.Migrate(ctx, store.Models()...); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	app.store = store.New(app.pool.DB(), logger)

	// 🗃️ Redis
	cacheCfg := cache.DefaultConfig()
	if cfg.Redis.Enabled {
		cacheCfg.Addr = cfg.Redis.Addr
		cacheCfg.Password = cfg.Redis.Password
		cacheCfg.DB = cfg.Redis.DB
		cacheCfg.DefaultTTL = cfg.Search.CacheTTL
		if cfg.Redis.KeyPrefix != "" {
			cacheCfg.KeyPrefix = cfg.Redis.KeyPrefix
		}
		if cfg.Redis.PoolSize > 0 {
			cacheCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			cacheCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}
		app.cache, err = cache.NewManager(cacheCfg, logger)
		if err != nil {
			return nil, err
		}
		app.search = cache.NewRedisSearchStore(app.cache, cfg.Search.CacheTTL, app.metrics)
	} else {
		app.search = cache.NewSQLSearchStore(app.store, cfg.Search.CacheTTL, clk, app.metrics)
	}

	// 🚦 调用账本与限流
	var ledger ratelimit.CallLedger
	switch cfg.RateLimit.Ledger {
	case config.LedgerRedis:
		if app.cache == nil {
			return nil, fmt.Errorf("redis ledger requires redis.enabled")
		}
		ledger = ratelimit.NewRedisLedger(app.cache.Client(),
			ratelimit.WithKeyPrefix(cacheCfg.KeyPrefix+"calls:"),
			ratelimit.WithRetention(cfg.RateLimit.LedgerRetention),
		)
	case config.LedgerMemory:
		ledger = ratelimit.NewMemoryLedger(ratelimit.WithMemoryRetention(cfg.RateLimit.LedgerRetention))
	default:
		ledger = ratelimit.NewGormLedger(app.pool.DB())
	}
	app.limiter = ratelimit.New(ledger, cfg.RateLimit.Limits(), logger,
		ratelimit.WithClock(clk),
		ratelimit.WithMetrics(app.metrics),
	)

	// 🐦 采集器
	tracer := otel.Tracer("github.com/247void/twitterScraper/collector")
	for _, cc := range cfg.Collectors {
		c, cerr := app.buildCollector(cc, clk, opts, collector.WithTracer(tracer))
		if cerr != nil {
			return nil, fmt.Errorf("collector %s: %w", cc.ID, cerr)
		}
		app.collectors = append(app.collectors, c)
	}

	// 🌐 HTTP
	app.handler = app.routes(ctx)
	srvCfg := server.DefaultConfig()
	srvCfg.Addr = fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	if cfg.Server.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.ShutdownTimeout > 0 {
		srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	app.server = server.NewManager(app.handler, srvCfg, logger)

	logger.Info("application assembled",
		zap.Int("collectors", len(app.collectors)),
		zap.String("database", cfg.Database.Driver),
		zap.String("ledger", cfg.RateLimit.Ledger),
		zap.String("search_cache", app.search.Backend()),
		zap.Bool("telemetry", app.telemetry.Enabled()),
	)
	return app, nil
}

// buildCollector 解析工作流、读取账号并创建平台客户端
func (a *App) buildCollector(cc config.CollectorConfig, clk clock.Clock, appOpts AppOptions, extra ...collector.Option) (*collector.Collector, error) {
	preset := cc.Workflow
	if preset == "" {
		preset = a.cfg.Workflow.DefaultPreset
	}
	wf, err := workflow.Resolve(preset, cc.WorkflowFile)
	if err != nil {
		return nil, err
	}

	accounts, err := batch.LoadAccounts(cc.Accounts(), cc.MaxAccounts)
	if err != nil {
		if !cc.DryRun || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		a.logger.Warn("accounts file missing, dry run continues without accounts",
			zap.String("collector_id", cc.ID),
			zap.String("path", cc.Accounts()),
		)
	}

	client, err := newPlatformClient(cc, clk, appOpts.ClientFactory)
	if err != nil {
		return nil, err
	}

	creds := cc.Credentials()
	if cc.DryRun && creds.Username == "" {
		// 模拟平台只要求用户名非空
		creds.Username = cc.ID
	}

	opts := []collector.Option{
		collector.WithClock(clk),
		collector.WithMetrics(a.metrics),
	}
	if cc.Seed != 0 {
		opts = append(opts, collector.WithRandom(clock.Seeded(cc.Seed)))
	}
	if appOpts.Verifier != nil {
		opts = append(opts, collector.WithVerifier(appOpts.Verifier))
	}
	opts = append(opts, extra...)

	return collector.New(collector.Config{
		ID:           cc.ID,
		Credentials:  creds,
		Workflow:     wf,
		Accounts:     accounts,
		Constants:    cc.Constants,
		Engine:       a.cfg.Workflow.EngineOptions(),
		StrictParams: a.cfg.Workflow.StrictParams,
	}, client, a.store, a.limiter, a.logger, opts...)
}

// newPlatformClient 按代理配置构建 transport 并返回平台客户端。
// dry_run 使用模拟客户端，只校验代理配置；否则把 transport 交给 factory。
func newPlatformClient(cc config.CollectorConfig, clk clock.Clock, factory ClientFactory) (platform.Client, error) {
	transport, err := cc.Proxy.Transport(cc.SSLVerified())
	if err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if !cc.DryRun {
		if factory == nil {
			return nil, fmt.Errorf("no live platform client is built in; set dry_run or pass --dry-run")
		}
		client, err := factory(cc, transport)
		if err != nil {
			return nil, fmt.Errorf("platform client: %w", err)
		}
		return client, nil
	}
	seed := cc.Seed
	if seed == 0 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(cc.ID))
		seed = h.Sum64()
	}
	return platform.NewSimulated(seed, platform.WithSimClock(clk)), nil
}

// Handler 返回完整的 HTTP 处理链
func (a *App) Handler() http.Handler { return a.handler }

// Collectors 返回已装配的采集器
func (a *App) Collectors() []*collector.Collector { return a.collectors }

// Run 启动 HTTP 服务与全部采集器，直到 ctx 结束。
// 单个采集器退出只记录日志，不影响其他采集器与 API。
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(gctx)
	})

	for _, c := range a.collectors {
		g.Go(func() error {
			if err := c.Run(gctx); err != nil {
				a.logger.Error("collector exited",
					zap.String("collector_id", c.ID()),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close 按创建的逆序释放资源，可重复调用
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
		cancel()
		a.telemetry = nil
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
}

// handlerCollectors 把采集器转换成 API 使用的接口集合
func (a *App) handlerCollectors() *handlers.Collectors {
	cs := make([]handlers.Collector, 0, len(a.collectors))
	for _, c := range a.collectors {
		cs = append(cs, c)
	}
	return handlers.NewCollectors(a.cfg.Search.DefaultCollector, cs...)
}
