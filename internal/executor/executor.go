// Package executor dispatches parsed actions to UI automation primitives.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// Automation is the set of UI primitives. Coordinates are absolute pixels.
type Automation interface {
	Click(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string) error
	// Scroll scrolls by amount notches; positive is down (or right when
	// horizontal).
	Scroll(ctx context.Context, amount int, horizontal bool) error
	Press(ctx context.Context, key string) error
	Drag(ctx context.Context, x1, y1, x2, y2 int, d time.Duration) error
}

// Locator resolves on-screen text to a point.
type Locator interface {
	Locate(ctx context.Context, text string) (screen.Point, bool, error)
}

// Capturer takes whole-screen screenshots.
type Capturer interface {
	Capture(ctx context.Context) (screen.Screenshot, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds the executor limits and pacing.
type Config struct {
	Bounds             screen.Size
	SafetyMode         bool
	MaxWaitSeconds     float64
	MaxTextLength      int
	TypeInterval       time.Duration
	DragDuration       time.Duration
	MaxDurationSamples int
}

// DefaultConfig returns the stock executor settings for the given screen.
func DefaultConfig(bounds screen.Size) Config {
	return Config{
		Bounds:             bounds,
		SafetyMode:         true,
		MaxWaitSeconds:     60,
		MaxTextLength:      1000,
		TypeInterval:       50 * time.Millisecond,
		DragDuration:       time.Second,
		MaxDurationSamples: 1000,
	}
}

// Result is the outcome of one action.
type Result struct {
	Kind       action.Kind        `json:"kind"`
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       map[string]any     `json:"data,omitempty"`
	Screenshot *screen.Screenshot `json:"screenshot,omitempty"`
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Option customises an Executor.
type Option func(*Executor)

// WithSleeper replaces the sleeper used by wait and typing pacing.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithClock replaces the clock used for duration samples.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// Executor runs actions one at a time. It is not safe for concurrent use.
type Executor struct {
	cfg     Config
	auto    Automation
	locator Locator
	capture Capturer
	sleep   Sleeper
	now     func() time.Time
	stats   stats
}

// New creates an executor.
func New(cfg Config, auto Automation, locator Locator, capture Capturer, opts ...Option) *Executor {
	e := &Executor{
		cfg:     cfg,
		auto:    auto,
		locator: locator,
		capture: capture,
		sleep:   sleepContext,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.stats.limit = cfg.MaxDurationSamples
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs one action. It never panics; any handler failure is
// returned as an unsuccessful result. Statistics are updated on every call.
func (e *Executor) Execute(ctx context.Context, a action.Action) (res Result) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("kind", a.Kind().String()).Interface("panic", r).Msg("executor: handler panicked")
			res = fail("action %s failed: %v", a.Kind(), r)
		}
		res.Kind = a.Kind()
		e.stats.record(res.Success, e.now().Sub(start))
		if !res.Success {
			log.Warn().Str("kind", a.Kind().String()).Str("message", res.Message).Msg("executor: action failed")
		}
	}()

	log.Debug().Str("kind", a.Kind().String()).Str("description", a.Description()).Msg("executor: dispatch")
	if err := action.Validate(a); err != nil {
		return fail("invalid action: %v", err)
	}
	if e.cfg.SafetyMode {
		if reason, blocked := e.gate(a); blocked {
			return fail("safety check failed: %s", reason)
		}
	}
	return e.dispatch(ctx, a)
}

// ExecuteBatch runs actions in order and stops after the first failure. The
// returned slice ends with that failure.
func (e *Executor) ExecuteBatch(ctx context.Context, actions []action.Action) []Result {
	out := make([]Result, 0, len(actions))
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			out = append(out, Result{Kind: a.Kind(), Message: fmt.Sprintf("cancelled: %v", err)})
			break
		}
		res := e.Execute(ctx, a)
		out = append(out, res)
		if !res.Success {
			log.Debug().Int("index", i).Int("total", len(actions)).Msg("executor: batch halted")
			break
		}
	}
	return out
}

// gate is the pre-dispatch bounds and duration re-check, independent of the
// safety evaluator.
func (e *Executor) gate(a action.Action) (string, bool) {
	switch a.Kind() {
	case action.KindClick:
		var p action.ClickParams
		if err := action.Decode(a, &p); err != nil {
			return err.Error(), true
		}
		if p.HasCoordinates() && !e.cfg.Bounds.Contains(*p.X, *p.Y) {
			return fmt.Sprintf("coordinates (%d, %d) outside screen %dx%d", *p.X, *p.Y, e.cfg.Bounds.Width, e.cfg.Bounds.Height), true
		}
	case action.KindDrag:
		var p action.DragParams
		if err := action.Decode(a, &p); err != nil {
			return err.Error(), true
		}
		if p.HasCoordinates() && (!e.cfg.Bounds.Contains(*p.SourceX, *p.SourceY) || !e.cfg.Bounds.Contains(*p.TargetX, *p.TargetY)) {
			return "drag coordinates outside screen", true
		}
	case action.KindWait:
		if d, _ := a.Float("duration"); d > e.cfg.MaxWaitSeconds {
			return fmt.Sprintf("wait %gs exceeds %gs", d, e.cfg.MaxWaitSeconds), true
		}
	case action.KindType:
		if n := len([]rune(a.String("text"))); n > e.cfg.MaxTextLength {
			return fmt.Sprintf("text length %d exceeds %d", n, e.cfg.MaxTextLength), true
		}
	case action.KindScroll, action.KindPressKey, action.KindScreenshot, action.KindFindText:
	}
	return "", false
}

// SetSafetyMode toggles the pre-dispatch gate.
func (e *Executor) SetSafetyMode(enabled bool) {
	e.cfg.SafetyMode = enabled
}

// SetScreenBounds updates the bounds used by the gate and the center click.
func (e *Executor) SetScreenBounds(size screen.Size) {
	e.cfg.Bounds = size
}

// Stats returns a snapshot of the cumulative statistics.
func (e *Executor) Stats() Stats {
	return e.stats.snapshot()
}

// ResetStats clears all statistics.
func (e *Executor) ResetStats() {
	e.stats.reset()
}
