package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/247void/twitterScraper/batch"
	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/internal/metrics"
	"github.com/247void/twitterScraper/platform"
	"github.com/247void/twitterScraper/ratelimit"
	"github.com/247void/twitterScraper/store"
	"github.com/247void/twitterScraper/types"
	"github.com/247void/twitterScraper/workflow"
)

// Verifier supplies the one-time code when sign-in asks for verification.
type Verifier interface {
	VerificationCode(ctx context.Context, collectorID string) (string, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, collectorID string) (string, error)

func (f VerifierFunc) VerificationCode(ctx context.Context, collectorID string) (string, error) {
	return f(ctx, collectorID)
}

// Config describes one collector identity.
type Config struct {
	ID          string
	Credentials platform.Credentials
	Workflow    *workflow.Workflow
	Accounts    []string
	// Constants override workflow and built-in constants.
	Constants    map[string]any
	Engine       workflow.Options
	StrictParams bool
}

// Collector owns one platform session and runs its workflow. Steps run on
// the Run goroutine; Search, Pause, Resume and Status may be called from
// other goroutines.
type Collector struct {
	id       string
	creds    platform.Credentials
	wf       *workflow.Workflow
	settings Settings

	client  platform.Client
	store   *store.Store
	limiter *ratelimit.Limiter

	batches  *batch.Scheduler
	registry *workflow.Registry
	pause    *workflow.PauseController
	engine   *workflow.Engine
	history  *workflow.History

	clock    clock.Clock
	rnd      clock.Random
	metrics  *metrics.Collector
	tracer   trace.Tracer
	verifier Verifier
	logger   *zap.Logger

	connectMu sync.Mutex
	connected atomic.Bool
	running   atomic.Bool

	timelineMu        sync.Mutex
	lastTimelineCheck time.Time

	searchMu sync.Mutex
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock injects the time source shared by handlers and the engine.
func WithClock(c clock.Clock) Option { return func(col *Collector) { col.clock = c } }

// WithRandom injects the source of jitter and probabilistic choices.
func WithRandom(r clock.Random) Option { return func(col *Collector) { col.rnd = r } }

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Collector) Option { return func(col *Collector) { col.metrics = m } }

// WithTracer sets the tracer for step spans.
func WithTracer(t trace.Tracer) Option { return func(col *Collector) { col.tracer = t } }

// WithVerifier sets the verification code source used by Connect.
func WithVerifier(v Verifier) Option { return func(col *Collector) { col.verifier = v } }

// New builds a collector and validates its workflow against the registered
// actions. Misconfiguration is reported here, before any platform call.
func New(cfg Config, client platform.Client, st *store.Store, limiter *ratelimit.Limiter, logger *zap.Logger, opts ...Option) (*Collector, error) {
	if cfg.ID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "collector id is required")
	}
	if client == nil || st == nil || limiter == nil {
		return nil, types.Errorf(types.ErrInvalidRequest, "collector %s: client, store and limiter are required", cfg.ID)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	wf := cfg.Workflow
	if wf == nil {
		wf = workflow.DefaultWorkflow()
	}

	settings, err := ResolveSettings(wf.Constants, cfg.Constants)
	if err != nil {
		return nil, workflow.InvalidWorkflowError(wf.Name, err)
	}

	c := &Collector{
		id:       cfg.ID,
		creds:    cfg.Credentials,
		wf:       wf,
		settings: settings,
		client:   client,
		store:    st,
		limiter:  limiter,
		clock:    clock.Real(),
		rnd:      clock.DefaultRandom(),
		history:  workflow.NewHistory(0),
		logger:   logger.With(zap.String("component", "collector"), zap.String("collector_id", cfg.ID)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.registry = workflow.NewRegistry(c.logger, workflow.WithStrictParams(cfg.StrictParams))
	if err := c.registerActions(); err != nil {
		return nil, err
	}
	if err := c.registry.Validate(wf); err != nil {
		return nil, err
	}

	c.batches = batch.New(cfg.Accounts, settings.AccountsPerBatch, c.rnd)
	c.pause = workflow.NewPauseController(cfg.ID, c.logger, c.metrics)

	engineOpts := []workflow.EngineOption{
		workflow.WithOptions(cfg.Engine),
		workflow.WithEngineClock(c.clock),
		workflow.WithEngineRandom(c.rnd),
		workflow.WithEngineMetrics(c.metrics),
		workflow.WithHistory(c.history),
	}
	if c.tracer != nil {
		engineOpts = append(engineOpts, workflow.WithTracer(c.tracer))
	}
	c.engine = workflow.NewEngine(cfg.ID, c.registry, limiter, c.pause, c.logger, engineOpts...)
	return c, nil
}

// ID returns the collector identity.
func (c *Collector) ID() string { return c.id }

// Settings returns the resolved constants.
func (c *Collector) Settings() Settings { return c.settings }

// Workflow returns the workflow the collector runs.
func (c *Collector) Workflow() *workflow.Workflow { return c.wf }

// Registry returns the action registry.
func (c *Collector) Registry() *workflow.Registry { return c.registry }

// Connect signs in. When the platform asks for verification the Verifier
// is consulted once and sign-in retried. Connecting twice is a no-op.
func (c *Collector) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()
	if c.connected.Load() {
		return nil
	}

	c.logger.Info("signing in", zap.String("username", c.creds.Username))
	err := c.client.SignIn(ctx, c.creds)
	if errors.Is(err, platform.ErrActionRequired) {
		if c.verifier == nil {
			return types.Errorf(types.ErrActionRequired, "collector %s: verification required and no verifier configured", c.id).
				WithCause(err).WithCollector(c.id)
		}
		c.logger.Warn("verification required")
		code, verr := c.verifier.VerificationCode(ctx, c.id)
		if verr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return types.Errorf(types.ErrActionRequired, "collector %s: read verification code", c.id).
				WithCause(verr).WithCollector(c.id)
		}
		if verr = c.client.SubmitVerification(ctx, code); verr != nil {
			return types.Errorf(types.ErrActionRequired, "collector %s: submit verification code", c.id).
				WithCause(verr).WithCollector(c.id)
		}
		err = c.client.SignIn(ctx, c.creds)
	}
	if err != nil {
		return fmt.Errorf("sign in %s: %w", c.id, err)
	}

	c.connected.Store(true)
	c.logger.Info("signed in", zap.Int("accounts", len(c.batches.Accounts())))
	return nil
}

// Run connects if needed and executes the workflow until ctx is cancelled
// or a fatal error stops it. Cancellation is not an error.
func (c *Collector) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return types.Errorf(types.ErrInvalidRequest, "collector %s is already running", c.id)
	}
	defer c.running.Store(false)

	if err := c.connectWithRetry(ctx); err != nil {
		if workflow.IsStopped(err) {
			c.logger.Info("collector stopped before sign-in")
			return nil
		}
		return err
	}

	c.logger.Info("collector started", zap.String("workflow", c.wf.Name))
	err := c.engine.Run(ctx, c.wf, "")
	if workflow.IsStopped(err) {
		c.logger.Info("collector stopped")
		return nil
	}
	if err != nil {
		c.logger.Error("collector aborted", zap.Error(err))
	}
	return err
}

// connectWithRetry signs in, cooling down between attempts like a failed
// step. Fatal errors and cancellation end the attempts.
func (c *Collector) connectWithRetry(ctx context.Context) error {
	cooldown := c.engine.Options().Cooldown
	for attempt := 1; ; attempt++ {
		err := c.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if types.IsFatal(err) {
			c.logger.Error("sign-in failed", zap.Error(err))
			return err
		}
		c.logger.Error("sign-in failed, cooling down before retry",
			zap.Int("attempt", attempt),
			zap.Duration("cooldown", cooldown),
			zap.Error(err),
		)
		c.metrics.RecordCooldown(c.id, "connect")
		if err := c.clock.Sleep(ctx, cooldown); err != nil {
			return err
		}
	}
}

// Pause holds the workflow before its next step. It reports whether the
// state changed.
func (c *Collector) Pause() bool { return c.pause.Pause() }

// Resume releases a paused workflow.
func (c *Collector) Resume() bool { return c.pause.Resume() }

// Paused reports whether the workflow is paused.
func (c *Collector) Paused() bool { return c.pause.Paused() }

// Status is a point-in-time view of a collector.
type Status struct {
	ID           string             `json:"id"`
	Workflow     string             `json:"workflow"`
	Connected    bool               `json:"connected"`
	Running      bool               `json:"running"`
	Paused       bool               `json:"paused"`
	CurrentStep  string             `json:"current_step,omitempty"`
	RunID        string             `json:"run_id,omitempty"`
	Batch        int                `json:"batch"`
	TotalBatches int                `json:"total_batches"`
	Accounts     int                `json:"accounts"`
	RecentSteps  []workflow.StepRun `json:"recent_steps,omitempty"`
}

// Status reports the collector state with up to recent step runs.
func (c *Collector) Status(recent int) Status {
	return Status{
		ID:           c.id,
		Workflow:     c.wf.Name,
		Connected:    c.connected.Load(),
		Running:      c.running.Load(),
		Paused:       c.pause.Paused(),
		CurrentStep:  c.engine.CurrentStep(),
		RunID:        c.engine.RunID(),
		Batch:        c.batches.Index(),
		TotalBatches: c.batches.TotalBatches(),
		Accounts:     len(c.batches.Accounts()),
		RecentSteps:  c.history.Recent(recent),
	}
}

// =============================================================================
// Shared helpers
// =============================================================================

// sleep waits a duration drawn from r.
func (c *Collector) sleep(ctx context.Context, r clock.Range) error {
	return c.clock.Sleep(ctx, r.Pick(c.rnd))
}

// chance returns true with probability p.
func (c *Collector) chance(p float64) bool {
	return c.rnd.Float64() < p
}

// logCall records an outbound call on the ledger.
func (c *Collector) logCall(ctx context.Context, endpoint string) error {
	return c.limiter.LogCall(ctx, c.id, endpoint)
}

// persistFailed logs a store error. Persistence failures never stop the
// workflow.
func (c *Collector) persistFailed(op string, err error, fields ...zap.Field) {
	c.logger.Error("persistence failed",
		append([]zap.Field{zap.String("op", op), zap.Error(err)}, fields...)...)
}

func (c *Collector) actionLogger(ctx context.Context, action string) *zap.Logger {
	l := c.logger.With(zap.String("action", action))
	if step, ok := types.Step(ctx); ok {
		l = l.With(zap.String("step", step))
	}
	return l
}
