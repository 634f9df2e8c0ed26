package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/collector"
	"github.com/247void/twitterScraper/types"
)

// Collector 是 API 对单个采集器的操作面，*collector.Collector 满足它
type Collector interface {
	ID() string
	Search(ctx context.Context, searchType, term string) (*collector.SearchMetrics, error)
	Pause() bool
	Resume() bool
	Status(recent int) collector.Status
}

// Collectors 按配置顺序保存采集器
type Collectors struct {
	order     []Collector
	byID      map[string]Collector
	defaultID string
}

// NewCollectors 创建集合。defaultID 为空或不存在时以第一个为默认。
func NewCollectors(defaultID string, cs ...Collector) *Collectors {
	set := &Collectors{byID: make(map[string]Collector, len(cs)), defaultID: defaultID}
	for _, c := range cs {
		if _, dup := set.byID[c.ID()]; dup {
			continue
		}
		set.order = append(set.order, c)
		set.byID[c.ID()] = c
	}
	return set
}

// Get 精确查找
func (s *Collectors) Get(id string) (Collector, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Resolve 查找 id，找不到时退回默认采集器，再退回第一个
func (s *Collectors) Resolve(id string) (Collector, bool) {
	if c, ok := s.byID[id]; ok {
		return c, true
	}
	if c, ok := s.byID[s.defaultID]; ok {
		return c, true
	}
	if len(s.order) > 0 {
		return s.order[0], true
	}
	return nil, false
}

// List 返回全部采集器
func (s *Collectors) List() []Collector {
	return append([]Collector(nil), s.order...)
}

// Len 采集器数量
func (s *Collectors) Len() int { return len(s.order) }

// =============================================================================
// 🎛️ 采集器 Handler
// =============================================================================

// CollectorHandler 查看状态与暂停恢复
type CollectorHandler struct {
	collectors *Collectors
	logger     *zap.Logger
}

// PauseResult 暂停或恢复的结果
type PauseResult struct {
	ID      string `json:"id"`
	Paused  bool   `json:"paused"`
	Changed bool   `json:"changed"`
}

// NewCollectorHandler 创建处理器
func NewCollectorHandler(collectors *Collectors, logger *zap.Logger) *CollectorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectorHandler{collectors: collectors, logger: logger.With(zap.String("handler", "collectors"))}
}

// HandleList GET /collectors?recent=N
func (h *CollectorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recent, err := QueryInt(r, "recent", 0, 0, 100)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	out := make([]collector.Status, 0, h.collectors.Len())
	for _, c := range h.collectors.List() {
		out = append(out, c.Status(recent))
	}
	WriteSuccess(w, out)
}

// HandleGet GET /collectors/{id}
func (h *CollectorHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	recent, err := QueryInt(r, "recent", 10, 0, 100)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, c.Status(recent))
}

// HandlePause POST /collectors/{id}/pause
func (h *CollectorHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	changed := c.Pause()
	h.logger.Info("collector paused via API", zap.String("collector_id", c.ID()), zap.Bool("changed", changed))
	WriteSuccess(w, PauseResult{ID: c.ID(), Paused: true, Changed: changed})
}

// HandleResume POST /collectors/{id}/resume
func (h *CollectorHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	changed := c.Resume()
	h.logger.Info("collector resumed via API", zap.String("collector_id", c.ID()), zap.Bool("changed", changed))
	WriteSuccess(w, PauseResult{ID: c.ID(), Paused: false, Changed: changed})
}

func (h *CollectorHandler) lookup(w http.ResponseWriter, r *http.Request) (Collector, bool) {
	id := r.PathValue("id")
	c, ok := h.collectors.Get(id)
	if !ok {
		WriteError(w, types.Errorf(types.ErrNotFound, "collector %q not found", id), h.logger)
		return nil, false
	}
	return c, true
}
