package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/internal/cache"
	"github.com/247void/twitterScraper/types"
)

// SearchHandler 提供 GET /search，结果经 SearchStore 缓存
type SearchHandler struct {
	collectors *Collectors
	cache      cache.SearchStore
	logger     *zap.Logger
}

// SearchResult /search 的返回数据，Metrics 为 collector.SearchMetrics 的 JSON
type SearchResult struct {
	Cached      bool            `json:"cached"`
	CollectorID string          `json:"collector_id,omitempty"`
	Metrics     json.RawMessage `json:"metrics"`
}

// NewSearchHandler 创建处理器，store 为 nil 时不缓存
func NewSearchHandler(collectors *Collectors, store cache.SearchStore, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchHandler{collectors: collectors, cache: store, logger: logger.With(zap.String("handler", "search"))}
}

// HandleSearch GET /search?search_type&term&collector_id&force_refresh
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	searchType := strings.TrimSpace(q.Get("search_type"))
	term := strings.TrimSpace(q.Get("term"))
	if searchType == "" || term == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "search_type and term are required", h.logger)
		return
	}
	force, err := QueryBool(r, "force_refresh")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	if !force && h.cache != nil {
		data, err := h.cache.Get(r.Context(), searchType, term)
		switch {
		case err == nil:
			WriteSuccess(w, SearchResult{Cached: true, Metrics: data})
			return
		case !cache.IsCacheMiss(err):
			h.logger.Warn("search cache read failed", zap.String("backend", h.cache.Backend()), zap.Error(err))
		}
	}

	col, ok := h.collectors.Resolve(q.Get("collector_id"))
	if !ok {
		WriteErrorMessage(w, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "no collectors configured", h.logger)
		return
	}

	metrics, err := col.Search(r.Context(), searchType, term)
	if err != nil {
		var apiErr *types.Error
		if !errors.As(err, &apiErr) {
			err = types.Errorf(types.ErrPlatform, "search failed on collector %s", col.ID()).WithCause(err).WithCollector(col.ID())
		}
		WriteError(w, err, h.logger)
		return
	}

	data, err := json.Marshal(metrics)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if h.cache != nil {
		if err := h.cache.Put(r.Context(), searchType, term, data); err != nil {
			h.logger.Warn("search cache write failed", zap.String("backend", h.cache.Backend()), zap.Error(err))
		}
	}

	WriteSuccess(w, SearchResult{CollectorID: col.ID(), Metrics: data})
}
