package availability

import (
	"log/slog"
	"time"
)

const (
	// DefaultLeadTime is the minimum notice between "now" and a bookable
	// slot's start.
	DefaultLeadTime = 120 * time.Minute

	// DefaultIterationCap bounds the per-window stepping loop. It never
	// triggers for a positive cycle and a finite window; it exists to contain
	// pathological configurations.
	DefaultIterationCap = 1000
)

// Engine evaluates slot availability. It is constructed once at startup and
// shared by all callers; the clock is injectable so tests can freeze "now".
type Engine struct {
	logger       *slog.Logger
	leadTime     time.Duration
	iterationCap int
	now          func() time.Time
}

type Option func(*Engine)

func WithLeadTime(d time.Duration) Option {
	return func(e *Engine) { e.leadTime = d }
}

func WithIterationCap(n int) Option {
	return func(e *Engine) { e.iterationCap = n }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	e.Reset()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset restores the default lead time, iteration cap, and wall clock.
// Intended for tests that tweak the engine via options.
func (e *Engine) Reset() {
	e.leadTime = DefaultLeadTime
	e.iterationCap = DefaultIterationCap
	e.now = time.Now
}
