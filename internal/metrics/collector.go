// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 所有 Record* 方法对 nil 接收者安全，未启用指标时组件可直接传 nil。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 平台调用与限流指标
	platformCallsTotal *prometheus.CounterVec
	throttleTotal      *prometheus.CounterVec
	throttleSleep      *prometheus.HistogramVec

	// 工作流指标
	stepExecutionsTotal *prometheus.CounterVec
	stepDuration        *prometheus.HistogramVec
	stepCooldownsTotal  *prometheus.CounterVec
	workflowPaused      *prometheus.GaugeVec
	batchRotationsTotal *prometheus.CounterVec

	// 采集结果指标
	itemsStoredTotal *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 平台调用与限流
	c.platformCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_calls_total",
			Help:      "Total number of logged platform calls",
		},
		[]string{"collector_id", "endpoint"},
	)

	c.throttleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttle_total",
			Help:      "Total number of rate-limit cooldowns",
		},
		[]string{"collector_id", "tier"}, // tier: soft, hard, precall
	)

	c.throttleSleep = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "throttle_sleep_seconds",
			Help:      "Rate-limit cooldown duration in seconds",
			Buckets:   []float64{1, 2, 5, 30, 60, 120, 180, 300, 600, 900, 1200},
		},
		[]string{"collector_id", "tier"},
	)

	// 工作流
	c.stepExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_step_executions_total",
			Help:      "Total number of workflow step executions",
		},
		[]string{"collector_id", "workflow", "step", "status"},
	)

	c.stepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Workflow step handler duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"collector_id", "workflow", "step"},
	)

	c.stepCooldownsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_step_cooldowns_total",
			Help:      "Total number of failure cooldowns before retrying a step",
		},
		[]string{"collector_id", "step"},
	)

	c.workflowPaused = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_paused",
			Help:      "1 when the collector workflow is paused",
		},
		[]string{"collector_id"},
	)

	c.batchRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_rotations_total",
			Help:      "Total number of account batch rotations",
		},
		[]string{"collector_id"},
	)

	c.itemsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_stored_total",
			Help:      "Total number of newly stored items",
		},
		[]string{"collector_id", "kind"}, // kind: tweet, reply, following, mention ...
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🚦 平台调用与限流
// =============================================================================

// RecordPlatformCall 记录一次平台调用，endpoint 只保留首段（如 "tweets/foo" → "tweets"）
func (c *Collector) RecordPlatformCall(collectorID, endpoint string) {
	if c == nil {
		return
	}
	c.platformCallsTotal.WithLabelValues(collectorID, EndpointKind(endpoint)).Inc()
}

// RecordThrottle 记录一次限流冷却
func (c *Collector) RecordThrottle(collectorID, tier string, sleep time.Duration) {
	if c == nil {
		return
	}
	c.throttleTotal.WithLabelValues(collectorID, tier).Inc()
	c.throttleSleep.WithLabelValues(collectorID, tier).Observe(sleep.Seconds())
}

// =============================================================================
// 🔄 工作流指标记录
// =============================================================================

// RecordStep 记录步骤执行
func (c *Collector) RecordStep(collectorID, workflow, step, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stepExecutionsTotal.WithLabelValues(collectorID, workflow, step, status).Inc()
	c.stepDuration.WithLabelValues(collectorID, workflow, step).Observe(duration.Seconds())
}

// RecordCooldown 记录步骤失败后的冷却
func (c *Collector) RecordCooldown(collectorID, step string) {
	if c == nil {
		return
	}
	c.stepCooldownsTotal.WithLabelValues(collectorID, step).Inc()
}

// SetPaused 设置工作流暂停状态
func (c *Collector) SetPaused(collectorID string, paused bool) {
	if c == nil {
		return
	}
	v := 0.0
	if paused {
		v = 1
	}
	c.workflowPaused.WithLabelValues(collectorID).Set(v)
}

// RecordBatchRotation 记录账号批次轮换
func (c *Collector) RecordBatchRotation(collectorID string) {
	if c == nil {
		return
	}
	c.batchRotationsTotal.WithLabelValues(collectorID).Inc()
}

// RecordStored 记录新入库条目数
func (c *Collector) RecordStored(collectorID, kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.itemsStoredTotal.WithLabelValues(collectorID, kind).Add(float64(n))
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	if c == nil {
		return
	}
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// EndpointKind 截取 endpoint 标签首段，避免账号名造成 label 基数爆炸
func EndpointKind(endpoint string) string {
	if i := strings.IndexByte(endpoint, '/'); i >= 0 {
		endpoint = endpoint[:i]
	}
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
