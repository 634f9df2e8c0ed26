// Package clock abstracts wall time and interruptible sleeps so pacing logic
// can run against a fake clock in tests.
package clock

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Clock is the time source used by the engine, the rate limiter and the
// collector handlers.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real returns a Clock backed by the runtime timer.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fake is a manual clock. Sleep advances the current time instantly and
// records the requested duration.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

// NewFake creates a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep records d and advances the clock by it.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	f.sleeps = append(f.sleeps, d)
	hook := f.onSleep
	f.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

// Advance moves the clock forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Sleeps returns a copy of every recorded sleep.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// TotalSlept sums all recorded sleeps.
func (f *Fake) TotalSlept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, d := range f.sleeps {
		total += d
	}
	return total
}

// Reset clears recorded sleeps.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = nil
}

// OnSleep installs a hook invoked after every Sleep. Tests use it to cancel
// a context or flip state at a suspension point.
func (f *Fake) OnSleep(hook func(d time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSleep = hook
}

// Random is the subset of math/rand/v2 used for jitter and probabilistic
// decisions.
type Random interface {
	Float64() float64
	IntN(n int) int
}

// DefaultRandom uses the goroutine-safe top-level math/rand/v2 source.
func DefaultRandom() Random { return globalRandom{} }

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// Seeded returns a deterministic Random guarded by a mutex.
func Seeded(seed uint64) Random {
	return &lockedRandom{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration `yaml:"min" json:"min" env:"MIN"`
	Max time.Duration `yaml:"max" json:"max" env:"MAX"`
}

// Seconds builds a Range from second bounds.
func Seconds(lo, hi float64) Range {
	return Range{
		Min: time.Duration(lo * float64(time.Second)),
		Max: time.Duration(hi * float64(time.Second)),
	}
}

// Pick draws a duration uniformly from r. A degenerate range returns Min.
func (r Range) Pick(rnd Random) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rnd.Float64()*float64(r.Max-r.Min))
}

// Valid reports whether the bounds are ordered and non-negative.
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

// Uniform draws a duration uniformly from [lo, hi].
func Uniform(rnd Random, lo, hi time.Duration) time.Duration {
	return Range{Min: lo, Max: hi}.Pick(rnd)
}
