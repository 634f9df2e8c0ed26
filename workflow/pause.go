package workflow

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/internal/metrics"
)

// PauseController holds a collector's paused flag. Pause and Resume
// serialize on a mutex; Paused is a lock-free read, so the engine may see a
// stale value for at most one poll interval.
type PauseController struct {
	mu          sync.Mutex
	paused      atomic.Bool
	collectorID string
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewPauseController creates a controller in the running state.
func NewPauseController(collectorID string, logger *zap.Logger, m *metrics.Collector) *PauseController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PauseController{
		collectorID: collectorID,
		logger:      logger.With(zap.String("component", "pause"), zap.String("collector_id", collectorID)),
		metrics:     m,
	}
}

// Pause sets the flag and reports whether it changed.
func (p *PauseController) Pause() bool {
	return p.set(true)
}

// Resume clears the flag and reports whether it changed.
func (p *PauseController) Resume() bool {
	return p.set(false)
}

// Paused reports the current flag.
func (p *PauseController) Paused() bool {
	return p.paused.Load()
}

func (p *PauseController) set(v bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused.Load() == v {
		return false
	}
	p.paused.Store(v)
	p.metrics.SetPaused(p.collectorID, v)
	if v {
		p.logger.Info("workflow paused")
	} else {
		p.logger.Info("workflow resumed")
	}
	return true
}
