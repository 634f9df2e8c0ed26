package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/247void/twitterScraper/api/handlers"
)

// routes 注册全部 HTTP 路由并套上中间件。ctx 结束时限流清理协程退出。
func (a *App) routes(ctx context.Context) http.Handler {
	collectors := a.handlerCollectors()

	health := handlers.NewHealthHandler(handlers.NewPingCheck("database", a.pool.Ping), a.logger)
	health.RegisterCheck(handlers.NewPingCheck("database", a.pool.Ping))
	if a.cache != nil {
		health.RegisterCheck(handlers.NewPingCheck("redis", a.cache.Ping))
	}

	tweets := handlers.NewTweetHandler(a.store, a.logger)
	search := handlers.NewSearchHandler(collectors, a.search, a.logger)
	control := handlers.NewCollectorHandler(collectors, a.logger)
	auth := ControlAuth(a.cfg.Server.ControlSecret, a.logger)

	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /ready", health.HandleReady)
	mux.HandleFunc("GET /version", health.HandleVersion(Version, BuildTime, GitCommit))
	mux.Handle("GET /metrics", promhttp.Handler())

	// 查询
	mux.HandleFunc("GET /tweets", tweets.HandleList)
	mux.HandleFunc("GET /search", search.HandleSearch)

	// 采集器状态与控制
	mux.HandleFunc("GET /collectors", control.HandleList)
	mux.HandleFunc("GET /collectors/{id}", control.HandleGet)
	mux.Handle("POST /collectors/{id}/pause", auth(http.HandlerFunc(control.HandlePause)))
	mux.Handle("POST /collectors/{id}/resume", auth(http.HandlerFunc(control.HandleResume)))

	return Chain(mux,
		Recovery(a.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
		MetricsMiddleware(a.metrics),
		RequestLogger(a.logger),
		RateLimiter(ctx, float64(a.cfg.Server.RateLimitRPS), a.cfg.Server.RateLimitBurst, a.logger),
	)
}
