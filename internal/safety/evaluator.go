// Package safety classifies instructions and actions by risk and enforces
// the rate limit and hard blocks that gate execution.
package safety

import (
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

const rateWindow = time.Minute

// Config holds the evaluator limits.
type Config struct {
	AllowedKinds         []action.Kind
	MaxWaitSeconds       float64
	WaitWarnSeconds      float64
	MaxActionsPerMinute  int
	MaxInstructionLength int
	MaxTextLength        int
	MaxBatchActions      int
	DragWarnDistance     float64
	Bounds               screen.Size
}

// DefaultConfig returns the stock limits. drag is not allowed by default.
func DefaultConfig() Config {
	return Config{
		AllowedKinds: []action.Kind{
			action.KindClick,
			action.KindType,
			action.KindScroll,
			action.KindPressKey,
			action.KindScreenshot,
			action.KindWait,
			action.KindFindText,
		},
		MaxWaitSeconds:       30,
		WaitWarnSeconds:      10,
		MaxActionsPerMinute:  60,
		MaxInstructionLength: 500,
		MaxTextLength:        1000,
		MaxBatchActions:      50,
		DragWarnDistance:     2000,
		Bounds:               screen.Size{Width: 3840, Height: 2160},
	}
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithClock replaces the wall clock used by the rate window.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// Evaluator holds the rate window and keyword tables. It is not safe for
// concurrent use; callers serialize access.
type Evaluator struct {
	cfg      Config
	allowed  map[action.Kind]bool
	keywords []keywordSet
	history  []time.Time
	now      func() time.Time
}

// New creates an evaluator.
func New(cfg Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:      cfg,
		allowed:  make(map[action.Kind]bool, len(cfg.AllowedKinds)),
		keywords: defaultKeywords(),
		now:      time.Now,
	}
	for _, k := range cfg.AllowedKinds {
		e.allowed[k] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckInstruction classifies a raw instruction before any planning.
func (e *Evaluator) CheckInstruction(text string) Verdict {
	if anyMatch(codeExecPatterns, text) {
		return block(RiskCritical, "instruction attempts system-level code execution")
	}
	if n := utf8.RuneCountInString(text); n > e.cfg.MaxInstructionLength {
		return block(RiskMedium, "instruction too long: %d characters (max %d)", n, e.cfg.MaxInstructionLength)
	}
	var f findings
	if v, blocked := scanKeywords(e.keywords, text, "instruction", &f); blocked {
		return v
	}
	return f.verdict()
}

// CheckAction classifies one action. A check that passes the rate gate is
// recorded in the rate window.
func (e *Evaluator) CheckAction(a action.Action) Verdict {
	if !e.allowed[a.Kind()] {
		return block(RiskHigh, "action kind %q is not allowed", a.Kind())
	}
	if !e.checkRate() {
		return block(RiskMedium, "rate limit exceeded: %d actions per minute", e.cfg.MaxActionsPerMinute)
	}
	e.history = append(e.history, e.now())

	var f findings
	var v Verdict
	switch a.Kind() {
	case action.KindType:
		v = e.checkType(a)
	case action.KindClick:
		v = e.checkClick(a)
	case action.KindDrag:
		v = e.checkDrag(a)
	case action.KindWait:
		v = e.checkWait(a)
	case action.KindScroll, action.KindPressKey, action.KindScreenshot, action.KindFindText:
		v = Verdict{Allowed: true}
	default:
		v = block(RiskHigh, "unsupported action kind %q", a.Kind())
	}
	if !v.Allowed {
		log.Debug().Str("kind", a.Kind().String()).Str("reason", v.BlockedReason).Msg("safety: action blocked")
		return v
	}
	f.merge(v)
	return f.verdict()
}

// CheckBatch checks actions in order, stopping at the first disallowed
// verdict. An oversized batch is rejected as a whole.
func (e *Evaluator) CheckBatch(actions []action.Action) []Verdict {
	if len(actions) > e.cfg.MaxBatchActions {
		out := make([]Verdict, len(actions))
		for i := range out {
			out[i] = block(RiskHigh, "batch too large: %d actions (max %d)", len(actions), e.cfg.MaxBatchActions)
		}
		return out
	}
	out := make([]Verdict, 0, len(actions))
	for _, a := range actions {
		v := e.CheckAction(a)
		out = append(out, v)
		if !v.Allowed {
			break
		}
	}
	return out
}

func (e *Evaluator) checkRate() bool {
	e.prune()
	return len(e.history) < e.cfg.MaxActionsPerMinute
}

func (e *Evaluator) prune() {
	now := e.now()
	e.history = slices.DeleteFunc(e.history, func(t time.Time) bool {
		return now.Sub(t) >= rateWindow
	})
}

func (e *Evaluator) checkType(a action.Action) Verdict {
	text := a.String("text")
	if n := utf8.RuneCountInString(text); n > e.cfg.MaxTextLength {
		return block(RiskMedium, "text too long: %d characters (max %d)", n, e.cfg.MaxTextLength)
	}
	var f findings
	if v, blocked := scanKeywords(e.keywords, text, "text", &f); blocked {
		return v
	}
	if anyMatch(dangerousPathPatterns, text) {
		f.warn(RiskMedium, "text contains a system path")
	}
	if anyMatch(sensitiveURLPatterns, text) {
		f.warn(RiskMedium, "text contains a sensitive URL")
	}
	if shellMetachars.MatchString(text) {
		f.warn(RiskMedium, "text contains shell metacharacters")
	}
	return f.verdict()
}

func (e *Evaluator) checkClick(a action.Action) Verdict {
	var p action.ClickParams
	if err := action.Decode(a, &p); err != nil {
		return block(RiskMedium, "invalid click parameters: %v", err)
	}
	if p.HasCoordinates() && !e.cfg.Bounds.Contains(*p.X, *p.Y) {
		return block(RiskMedium, "click coordinates out of bounds: (%d, %d)", *p.X, *p.Y)
	}
	var f findings
	target := strings.ToLower(p.Target)
	for _, d := range destructiveTargets {
		if target != "" && strings.Contains(target, d) {
			f.warn(RiskHigh, "click target may be destructive: %s", d)
		}
	}
	return f.verdict()
}

func (e *Evaluator) checkDrag(a action.Action) Verdict {
	var p action.DragParams
	if err := action.Decode(a, &p); err != nil {
		return block(RiskMedium, "invalid drag parameters: %v", err)
	}
	var f findings
	if !p.HasCoordinates() {
		return f.verdict()
	}
	coords := []struct {
		name  string
		value int
		limit int
	}{
		{"source_x", *p.SourceX, e.cfg.Bounds.Width},
		{"source_y", *p.SourceY, e.cfg.Bounds.Height},
		{"target_x", *p.TargetX, e.cfg.Bounds.Width},
		{"target_y", *p.TargetY, e.cfg.Bounds.Height},
	}
	for _, c := range coords {
		if c.value < 0 || c.value > c.limit {
			return block(RiskMedium, "drag coordinate out of bounds: %s=%d", c.name, c.value)
		}
	}
	dx := float64(*p.TargetX - *p.SourceX)
	dy := float64(*p.TargetY - *p.SourceY)
	if dist := math.Hypot(dx, dy); dist > e.cfg.DragWarnDistance {
		f.warn(RiskMedium, "long drag distance: %.0f px", dist)
	}
	return f.verdict()
}

func (e *Evaluator) checkWait(a action.Action) Verdict {
	d, _ := a.Float("duration")
	if d > e.cfg.MaxWaitSeconds {
		return block(RiskMedium, "wait too long: %gs (max %gs)", d, e.cfg.MaxWaitSeconds)
	}
	var f findings
	if d > e.cfg.WaitWarnSeconds {
		f.warn(RiskLow, "long wait: %gs", d)
	}
	return f.verdict()
}

// SetScreenBounds updates the coordinate limits.
func (e *Evaluator) SetScreenBounds(width, height int) {
	e.cfg.Bounds = screen.Size{Width: width, Height: height}
}

// AddKeyword adds a keyword to a category, creating the category if needed.
// Unknown categories only warn.
func (e *Evaluator) AddKeyword(c Category, word string) {
	k := newKeyword(word)
	if k.text == "" {
		return
	}
	for i := range e.keywords {
		if e.keywords[i].category == c {
			if !e.keywords[i].contains(k.text) {
				e.keywords[i].keywords = append(e.keywords[i].keywords, k)
			}
			return
		}
	}
	e.keywords = append(e.keywords, keywordSet{category: c, keywords: []keyword{k}})
}

// RemoveKeyword removes a keyword from a category if present.
func (e *Evaluator) RemoveKeyword(c Category, word string) {
	text := strings.ToLower(strings.TrimSpace(word))
	for i := range e.keywords {
		if e.keywords[i].category != c {
			continue
		}
		e.keywords[i].keywords = slices.DeleteFunc(e.keywords[i].keywords, func(k keyword) bool {
			return k.text == text
		})
	}
}

// Stats is a snapshot of the evaluator state.
type Stats struct {
	ActionsLastMinute   int           `json:"actions_last_minute"`
	MaxActionsPerMinute int           `json:"max_actions_per_minute"`
	AllowedKinds        []action.Kind `json:"allowed_kinds"`
	Bounds              screen.Size   `json:"bounds"`
	KeywordCount        int           `json:"keyword_count"`
}

// Stats reports the current window and configuration without mutating the
// rate window.
func (e *Evaluator) Stats() Stats {
	now := e.now()
	recent := 0
	for _, t := range e.history {
		if now.Sub(t) < rateWindow {
			recent++
		}
	}
	kinds := make([]action.Kind, 0, len(e.allowed))
	for _, k := range action.Kinds() {
		if e.allowed[k] {
			kinds = append(kinds, k)
		}
	}
	count := 0
	for _, set := range e.keywords {
		count += len(set.keywords)
	}
	return Stats{
		ActionsLastMinute:   recent,
		MaxActionsPerMinute: e.cfg.MaxActionsPerMinute,
		AllowedKinds:        kinds,
		Bounds:              e.cfg.Bounds,
		KeywordCount:        count,
	}
}
