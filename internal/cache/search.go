package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/internal/metrics"
	"github.com/247void/twitterScraper/store"
)

// =============================================================================
// 🔎 搜索结果缓存
// =============================================================================

// SearchStore 按 (search_type, term) 保存序列化后的搜索结果。
// 过期或不存在时 Get 返回 ErrCacheMiss。
type SearchStore interface {
	Get(ctx context.Context, searchType, term string) ([]byte, error)
	Put(ctx context.Context, searchType, term string, data []byte) error
	Backend() string
}

func searchKey(searchType, term string) string {
	return "search:" + searchType + ":" + term
}

// RedisSearchStore 以 Redis TTL 控制过期
type RedisSearchStore struct {
	m       *Manager
	ttl     time.Duration
	metrics *metrics.Collector
}

// NewRedisSearchStore 创建 Redis 搜索缓存
func NewRedisSearchStore(m *Manager, ttl time.Duration, mc *metrics.Collector) *RedisSearchStore {
	return &RedisSearchStore{m: m, ttl: ttl, metrics: mc}
}

// Backend 返回后端名
func (s *RedisSearchStore) Backend() string { return "redis" }

// Get 读取缓存
func (s *RedisSearchStore) Get(ctx context.Context, searchType, term string) ([]byte, error) {
	val, err := s.m.Get(ctx, searchKey(searchType, term))
	if err != nil {
		if IsCacheMiss(err) {
			s.metrics.RecordCacheMiss("search_redis")
		}
		return nil, err
	}
	s.metrics.RecordCacheHit("search_redis")
	return []byte(val), nil
}

// Put 写入缓存
func (s *RedisSearchStore) Put(ctx context.Context, searchType, term string, data []byte) error {
	return s.m.Set(ctx, searchKey(searchType, term), string(data), s.ttl)
}

// SQLSearchStore 落在 search_cache 表，按 last_searched_at 判断过期
type SQLSearchStore struct {
	st      *store.Store
	ttl     time.Duration
	clock   clock.Clock
	metrics *metrics.Collector
}

// NewSQLSearchStore 创建数据库搜索缓存，clk 为 nil 时使用系统时间
func NewSQLSearchStore(st *store.Store, ttl time.Duration, clk clock.Clock, mc *metrics.Collector) *SQLSearchStore {
	if clk == nil {
		clk = clock.Real()
	}
	return &SQLSearchStore{st: st, ttl: ttl, clock: clk, metrics: mc}
}

// Backend 返回后端名
func (s *SQLSearchStore) Backend() string { return "sql" }

// Get 读取未过期的缓存
func (s *SQLSearchStore) Get(ctx context.Context, searchType, term string) ([]byte, error) {
	row, err := s.st.GetSearchCache(ctx, searchType, term, s.clock.Now().Add(-s.ttl))
	if err != nil {
		return nil, fmt.Errorf("search cache get failed: %w", err)
	}
	if row == nil {
		s.metrics.RecordCacheMiss("search_sql")
		return nil, ErrCacheMiss
	}
	s.metrics.RecordCacheHit("search_sql")
	return []byte(row.Metrics), nil
}

// Put 覆盖写入缓存
func (s *SQLSearchStore) Put(ctx context.Context, searchType, term string, data []byte) error {
	err := s.st.PutSearchCache(ctx, &store.SearchCache{
		SearchType:     searchType,
		Term:           term,
		Metrics:        string(data),
		LastSearchedAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("search cache put failed: %w", err)
	}
	return nil
}
