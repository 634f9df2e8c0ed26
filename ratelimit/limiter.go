package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/247void/twitterScraper/internal/clock"
	"github.com/247void/twitterScraper/internal/metrics"
)

// Throttle tiers reported in logs and metrics.
const (
	TierSoft    = "soft"
	TierHard    = "hard"
	TierPreCall = "precall"
)

// Config holds the pacing thresholds. Counts are calls inside Window.
type Config struct {
	Window              time.Duration `yaml:"window" json:"window"`
	MinSpacing          time.Duration `yaml:"min_spacing" json:"min_spacing"`
	Threshold           int           `yaml:"threshold" json:"threshold"`
	Max                 int           `yaml:"max" json:"max"`
	MaxCallsBeforeSleep int           `yaml:"max_calls_before_sleep" json:"max_calls_before_sleep"`
	SoftCooldown        clock.Range   `yaml:"soft_cooldown" json:"soft_cooldown"`
	HardCooldown        clock.Range   `yaml:"hard_cooldown" json:"hard_cooldown"`
	PreCallCooldown     clock.Range   `yaml:"pre_call_cooldown" json:"pre_call_cooldown"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		Window:              15 * time.Minute,
		MinSpacing:          2 * time.Second,
		Threshold:           42,
		Max:                 48,
		MaxCallsBeforeSleep: 45,
		SoftCooldown:        clock.Seconds(60, 180),
		HardCooldown:        clock.Seconds(600, 900),
		PreCallCooldown:     clock.Range{Min: 10 * time.Minute, Max: 20 * time.Minute},
	}
}

// Validate checks that the thresholds are ordered and the ranges usable.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if c.MinSpacing < 0 {
		return fmt.Errorf("min_spacing must not be negative")
	}
	if c.Threshold <= 0 || c.Max < c.Threshold {
		return fmt.Errorf("threshold (%d) must be positive and not above max (%d)", c.Threshold, c.Max)
	}
	for name, r := range map[string]clock.Range{
		"soft_cooldown":     c.SoftCooldown,
		"hard_cooldown":     c.HardCooldown,
		"pre_call_cooldown": c.PreCallCooldown,
	} {
		if !r.Valid() {
			return fmt.Errorf("%s: invalid range %v..%v", name, r.Min, r.Max)
		}
	}
	return nil
}

// Limiter paces outbound calls against a CallLedger. It is safe for
// concurrent use; LogCall calls for one collector are serialized so the
// spacing holds.
type Limiter struct {
	ledger  CallLedger
	cfg     Config
	clock   clock.Clock
	rnd     clock.Random
	metrics *metrics.Collector
	logger  *zap.Logger

	mu   sync.Mutex
	last map[string]*lastCall
}

type lastCall struct {
	mu sync.Mutex
	at time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects the time source.
func WithClock(c clock.Clock) Option { return func(l *Limiter) { l.clock = c } }

// WithRandom injects the jitter source.
func WithRandom(r clock.Random) Option { return func(l *Limiter) { l.rnd = r } }

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option { return func(l *Limiter) { l.metrics = m } }

// New creates a Limiter.
func New(ledger CallLedger, cfg Config, logger *zap.Logger, opts ...Option) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Limiter{
		ledger: ledger,
		cfg:    cfg,
		clock:  clock.Real(),
		rnd:    clock.DefaultRandom(),
		logger: logger.With(zap.String("component", "ratelimit")),
		last:   make(map[string]*lastCall),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the limiter's thresholds.
func (l *Limiter) Config() Config { return l.cfg }

// CallCount returns how many calls collectorID made in the trailing window.
func (l *Limiter) CallCount(ctx context.Context, collectorID string) (int, error) {
	return l.ledger.CountSince(ctx, collectorID, l.clock.Now().Add(-l.cfg.Window))
}

// LogCall records a call. When the previous call of the same collector was
// less than MinSpacing ago it first sleeps the remainder; the record carries
// the time after that wait.
func (l *Limiter) LogCall(ctx context.Context, collectorID, endpoint string) error {
	lc := l.lastFor(collectorID)
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if !lc.at.IsZero() {
		if elapsed := l.clock.Now().Sub(lc.at); elapsed < l.cfg.MinSpacing {
			if err := l.clock.Sleep(ctx, l.cfg.MinSpacing-elapsed); err != nil {
				return err
			}
		}
	}

	now := l.clock.Now()
	if err := l.ledger.Append(ctx, CallRecord{Timestamp: now, Endpoint: endpoint, CollectorID: collectorID}); err != nil {
		return err
	}
	lc.at = now
	l.metrics.RecordPlatformCall(collectorID, endpoint)
	return nil
}

// ThrottleCheck runs after an action. At Max calls it sleeps the hard
// cooldown, at Threshold the soft one, and reports whether it slept.
func (l *Limiter) ThrottleCheck(ctx context.Context, collectorID string) (bool, error) {
	count, err := l.CallCount(ctx, collectorID)
	if err != nil {
		return false, err
	}

	switch {
	case count >= l.cfg.Max:
		return true, l.cooldown(ctx, collectorID, TierHard, count, l.cfg.HardCooldown)
	case count >= l.cfg.Threshold:
		return true, l.cooldown(ctx, collectorID, TierSoft, count, l.cfg.SoftCooldown)
	}
	return false, nil
}

// PreCallCheck runs before a burst of account fetches and sleeps the
// pre-call cooldown once MaxCallsBeforeSleep calls are in the window.
func (l *Limiter) PreCallCheck(ctx context.Context, collectorID string) (bool, error) {
	count, err := l.CallCount(ctx, collectorID)
	if err != nil {
		return false, err
	}
	if count < l.cfg.MaxCallsBeforeSleep {
		return false, nil
	}
	return true, l.cooldown(ctx, collectorID, TierPreCall, count, l.cfg.PreCallCooldown)
}

func (l *Limiter) cooldown(ctx context.Context, collectorID, tier string, count int, r clock.Range) error {
	d := r.Pick(l.rnd)
	l.logger.Info("rate limit cooldown",
		zap.String("collector_id", collectorID),
		zap.String("tier", tier),
		zap.Int("calls", count),
		zap.Duration("sleep", d),
	)
	l.metrics.RecordThrottle(collectorID, tier, d)
	return l.clock.Sleep(ctx, d)
}

func (l *Limiter) lastFor(collectorID string) *lastCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	lc, ok := l.last[collectorID]
	if !ok {
		lc = &lastCall{}
		l.last[collectorID] = lc
	}
	return lc
}
