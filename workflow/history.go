package workflow

import (
	"sync"
	"time"
)

// StepStatus is the outcome of one step execution.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// StepRun records one execution of a step.
type StepRun struct {
	RunID     string        `json:"run_id"`
	Step      string        `json:"step"`
	Action    string        `json:"action"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    StepStatus    `json:"status"`
	Result    string        `json:"result,omitempty"`
	Next      string        `json:"next,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// History keeps the most recent step runs of one collector.
type History struct {
	mu    sync.RWMutex
	runs  []StepRun
	limit int
}

// NewHistory creates a history holding at most limit runs (100 when limit
// is not positive).
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 100
	}
	return &History{limit: limit}
}

// Record appends a finished run, evicting the oldest when full.
func (h *History) Record(run StepRun) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.runs) >= h.limit {
		copy(h.runs, h.runs[1:])
		h.runs = h.runs[:len(h.runs)-1]
	}
	h.runs = append(h.runs, run)
}

// Recent returns up to n runs, newest first.
func (h *History) Recent(n int) []StepRun {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.runs) {
		n = len(h.runs)
	}
	out := make([]StepRun, 0, n)
	for i := len(h.runs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.runs[i])
	}
	return out
}

// ByStatus returns recorded runs with the given status, oldest first.
func (h *History) ByStatus(status StepStatus) []StepRun {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []StepRun
	for _, r := range h.runs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Len returns how many runs are held.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}
