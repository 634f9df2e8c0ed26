package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/internal/metrics"
	"github.com/247void/twitterScraper/types"
)

const tracerName = "github.com/247void/twitterScraper/workflow"

// Dispatcher executes a step's action.
type Dispatcher interface {
	Dispatch(ctx context.Context, step Step) (Result, error)
}

// Throttler is the post-action rate-limit check.
type Throttler interface {
	ThrottleCheck(ctx context.Context, collectorID string) (bool, error)
}

// Options tunes the engine loop.
type Options struct {
	// Cooldown is the wait after a failed step before it is retried.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
	// PollInterval is the sleep between pause checks.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	// MaxConsecutiveFailures stops Run after that many failures of one
	// step in a row. Zero retries forever.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" json:"max_consecutive_failures"`
}

// DefaultOptions returns a 300s cooldown, a 1s poll and unlimited retries.
func DefaultOptions() Options {
	return Options{
		Cooldown:     300 * time.Second,
		PollInterval: time.Second,
	}
}

// Engine drives one collector's workflow. Steps run strictly sequentially.
type Engine struct {
	collectorID string
	dispatcher  Dispatcher
	throttler   Throttler
	pause       *PauseController
	opts        Options

	clock   clock.Clock
	rnd     clock.Random
	logger  *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	history *History

	mu      sync.RWMutex
	current string
	runID   string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOptions replaces the loop options. Zero durations keep the defaults.
func WithOptions(o Options) EngineOption {
	return func(e *Engine) {
		if o.Cooldown > 0 {
			e.opts.Cooldown = o.Cooldown
		}
		if o.PollInterval > 0 {
			e.opts.PollInterval = o.PollInterval
		}
		if o.MaxConsecutiveFailures >= 0 {
			e.opts.MaxConsecutiveFailures = o.MaxConsecutiveFailures
		}
	}
}

// WithEngineClock injects the time source used for every sleep.
func WithEngineClock(c clock.Clock) EngineOption { return func(e *Engine) { e.clock = c } }

// WithEngineRandom injects the source for step sleeps.
func WithEngineRandom(r clock.Random) EngineOption { return func(e *Engine) { e.rnd = r } }

// WithEngineMetrics attaches a metrics collector.
func WithEngineMetrics(m *metrics.Collector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) EngineOption { return func(e *Engine) { e.tracer = t } }

// WithHistory records every step run into h.
func WithHistory(h *History) EngineOption { return func(e *Engine) { e.history = h } }

// NewEngine creates an engine for collectorID. throttler may be nil.
func NewEngine(collectorID string, d Dispatcher, t Throttler, p *PauseController, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = NewPauseController(collectorID, logger, nil)
	}
	e := &Engine{
		collectorID: collectorID,
		dispatcher:  d,
		throttler:   t,
		pause:       p,
		opts:        DefaultOptions(),
		clock:       clock.Real(),
		rnd:         clock.DefaultRandom(),
		logger:      logger.With(zap.String("component", "engine"), zap.String("collector_id", collectorID)),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentStep returns the step being executed or about to be.
func (e *Engine) CurrentStep() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// RunID returns the id of the active or last run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// Options returns the effective loop options.
func (e *Engine) Options() Options { return e.opts }

// Pause returns the engine's pause controller.
func (e *Engine) Pause() *PauseController { return e.pause }

// Run executes wf starting at initial (the entry point when empty) until
// ctx is cancelled, a terminal step is reached, or a fatal error occurs.
// Handler errors are retried on the same step after the cooldown.
func (e *Engine) Run(ctx context.Context, wf *Workflow, initial string) error {
	if initial == "" {
		initial = wf.EntryPoint
	}
	runID := uuid.NewString()
	e.mu.Lock()
	e.runID = runID
	e.current = initial
	e.mu.Unlock()

	ctx = types.WithCollectorID(ctx, e.collectorID)
	ctx = types.WithRunID(ctx, runID)
	log := e.logger.With(zap.String("run_id", runID), zap.String("workflow", wf.Name))
	log.Info("workflow started", zap.String("entry", initial))

	current := initial
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Info("workflow stopped", zap.String("step", current), zap.Error(err))
			return err
		}

		if e.pause.Paused() {
			if err := e.clock.Sleep(ctx, e.opts.PollInterval); err != nil {
				return err
			}
			continue
		}

		step, ok := wf.Step(current)
		if !ok {
			err := UnknownStepError(current)
			log.Error("workflow aborted", zap.String("step", current), zap.Error(err))
			return err
		}
		e.setCurrent(current)

		result, err := e.execute(ctx, runID, wf.Name, current, step)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if types.IsFatal(err) {
				log.Error("workflow aborted",
					zap.String("step", current),
					zap.String("action", step.Action),
					zap.Error(err),
				)
				return err
			}

			failures++
			if limit := e.opts.MaxConsecutiveFailures; limit > 0 && failures >= limit {
				return StepFailedError(current, failures, err)
			}
			log.Error("step failed, cooling down before retry",
				zap.String("step", current),
				zap.String("action", step.Action),
				zap.Int("attempt", failures),
				zap.Duration("cooldown", e.opts.Cooldown),
				zap.Error(err),
			)
			e.metrics.RecordCooldown(e.collectorID, current)
			if err := e.clock.Sleep(ctx, e.opts.Cooldown); err != nil {
				return err
			}
			continue
		}
		failures = 0

		if step.RateLimitSleep && e.throttler != nil {
			if _, err := e.throttler.ThrottleCheck(ctx, e.collectorID); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn("throttle check failed", zap.String("step", current), zap.Error(err))
			}
		}

		if step.MaxSleep > 0 {
			d := clock.Uniform(e.rnd, step.MinSleep, step.MaxSleep)
			log.Debug("step sleep", zap.String("step", current), zap.Duration("sleep", d))
			if err := e.clock.Sleep(ctx, d); err != nil {
				return err
			}
		}

		next, ok := ChooseNextStep(step, result)
		if !ok {
			log.Info("workflow completed", zap.String("step", current))
			return nil
		}
		current = next
		e.setCurrent(current)
	}
}

func (e *Engine) execute(ctx context.Context, runID, workflow, id string, step Step) (Result, error) {
	ctx = types.WithStep(ctx, id)
	ctx, span := e.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("collector.id", e.collectorID),
			attribute.String("workflow.name", workflow),
			attribute.String("workflow.step", id),
			attribute.String("workflow.action", step.Action),
		))
	defer span.End()

	start := e.clock.Now()
	result, err := e.dispatcher.Dispatch(ctx, step)
	end := e.clock.Now()
	duration := end.Sub(start)

	run := StepRun{
		RunID:     runID,
		Step:      id,
		Action:    step.Action,
		StartTime: start,
		EndTime:   end,
		Duration:  duration,
	}
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		run.Status = StepStatusFailed
		run.Error = err.Error()
	} else {
		span.SetAttributes(attribute.String("workflow.result", result.String()))
		run.Status = StepStatusCompleted
		run.Result = result.String()
		if next, ok := ChooseNextStep(step, result); ok {
			run.Next = next
		}
	}
	e.history.Record(run)
	e.metrics.RecordStep(e.collectorID, workflow, id, status, duration)
	return result, err
}

func (e *Engine) setCurrent(id string) {
	e.mu.Lock()
	e.current = id
	e.mu.Unlock()
}

// IsStopped reports whether err ends Run because of cancellation.
func IsStopped(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
