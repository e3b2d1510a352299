// Package orchestrator turns one instruction into executed UI operations:
// it plans (AI first, rule parser as fallback), gates every action through
// the safety evaluator and executes the plan in order.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/audit"
	"github.com/metalagman/screenpilot/internal/executor"
	"github.com/metalagman/screenpilot/internal/parser"
	"github.com/metalagman/screenpilot/internal/planner"
	"github.com/metalagman/screenpilot/internal/safety"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/metalagman/screenpilot/internal/vision"
	"github.com/rs/zerolog/log"
)

// Confidence reported for a completed instruction.
const (
	AIConfidence    = 0.9
	RulesConfidence = 0.7
)

// Planner produces plan text for a prompt.
type Planner interface {
	Generate(ctx context.Context, req planner.Request) (planner.Response, error)
	Statuses(ctx context.Context) []planner.Status
}

// Options selects how one instruction is processed.
type Options struct {
	UseAI          bool
	TakeScreenshot bool
	// Provider overrides the planner's default provider.
	Provider string
}

// Result is the outcome of one instruction.
type Result struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Actions     []executor.Result   `json:"actions_executed"`
	Screenshots []screen.Screenshot `json:"screenshots,omitempty"`
	Explanation string              `json:"ai_explanation,omitempty"`
	Confidence  float64             `json:"confidence"`
	Source      string              `json:"source,omitempty"`
	Plan        []action.Action     `json:"plan,omitempty"`
}

// Hooks observe processing. Panics inside hooks are swallowed.
type Hooks struct {
	Progress   func(message string)
	Screenshot func(shot screen.Screenshot)
}

// Deps are the collaborators of a Processor. Capture, OCR, Planner and
// Audit are optional.
type Deps struct {
	Parser   *parser.Parser
	Safety   *safety.Evaluator
	Executor *executor.Executor
	Capture  executor.Capturer
	OCR      vision.OCR
	Planner  Planner
	Audit    *audit.Recorder
}

// Processor runs instructions one at a time. It is not safe for
// concurrent use.
type Processor struct {
	parser  *parser.Parser
	safety  *safety.Evaluator
	exec    *executor.Executor
	capture executor.Capturer
	ocr     vision.OCR
	planner Planner
	audit   *audit.Recorder
	hooks   Hooks
}

// New creates a Processor.
func New(d Deps) *Processor {
	if d.Parser == nil {
		d.Parser = parser.New()
	}
	return &Processor{
		parser:  d.Parser,
		safety:  d.Safety,
		exec:    d.Executor,
		capture: d.Capture,
		ocr:     d.OCR,
		planner: d.Planner,
		audit:   d.Audit,
	}
}

// SetHooks replaces the observer hooks.
func (p *Processor) SetHooks(h Hooks) { p.hooks = h }

// Process plans and executes instruction. It never panics; failures are
// reported in the Result together with the history gathered so far.
func (p *Processor) Process(ctx context.Context, instruction string, opts Options) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("instruction processing panicked")
			res.Success = false
			res.Message = fmt.Sprintf("processing failed: %v", r)
			p.audit.Emit(ctx, audit.ErrorOccurred, res.Message, audit.Bool(false), nil)
		}
	}()

	p.audit.Emit(ctx, audit.InstructionReceived, instruction, nil, map[string]any{
		"use_ai": opts.UseAI, "take_screenshot": opts.TakeScreenshot, "provider": opts.Provider,
	})
	p.progress("processing instruction")

	v := p.safety.CheckInstruction(instruction)
	if !v.Allowed || len(v.Warnings) > 0 {
		p.auditVerdict(ctx, "instruction", v)
	}
	if !v.Allowed {
		res.Message = "instruction blocked: " + v.BlockedReason
		return res
	}

	st := &planState{instruction: instruction, opts: opts}
	if opts.TakeScreenshot {
		if shot, ok := p.screenshot(ctx, &res); ok {
			st.shot = &shot
		}
	}

	actions, source := p.plan(ctx, st)
	res.Explanation = st.explanation
	res.Source = source
	res.Plan = actions
	res.Confidence = RulesConfidence
	if source == SourceAI || source == SourceHeuristic {
		res.Confidence = AIConfidence
	}
	if len(actions) == 0 {
		res.Message = "no executable actions recognized"
		p.audit.Emit(ctx, audit.ErrorOccurred, res.Message, audit.Bool(false), nil)
		return res
	}

	p.progress(fmt.Sprintf("executing %d actions", len(actions)))
	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			res.Message = fmt.Sprintf("cancelled before action %d: %v", i+1, err)
			p.audit.Emit(ctx, audit.ErrorOccurred, res.Message, audit.Bool(false), nil)
			return res
		}
		p.progress(fmt.Sprintf("action %d/%d: %s", i+1, len(actions), a.Kind()))
		if opts.TakeScreenshot && i > 0 && a.Kind() != action.KindScreenshot {
			p.screenshot(ctx, &res)
		}

		v = p.safety.CheckAction(a)
		p.auditVerdict(ctx, string(a.Kind()), v)
		if !v.Allowed {
			res.Actions = append(res.Actions, executor.Result{
				Kind:    a.Kind(),
				Message: "blocked by safety check: " + v.BlockedReason,
			})
			res.Message = fmt.Sprintf("action %d (%s) blocked: %s", i+1, a.Kind(), v.BlockedReason)
			return res
		}

		r := p.exec.Execute(ctx, a)
		res.Actions = append(res.Actions, r)
		p.audit.Emit(ctx, audit.ActionExecuted, r.Message, audit.Bool(r.Success), map[string]any{
			"index": i, "kind": string(a.Kind()), "params": a.Params(), "data": r.Data,
		})
		if r.Screenshot != nil {
			res.Screenshots = append(res.Screenshots, *r.Screenshot)
			p.notifyScreenshot(*r.Screenshot)
		}
		if !r.Success {
			res.Message = fmt.Sprintf("action %d (%s) failed: %s", i+1, a.Kind(), r.Message)
			return res
		}
	}

	res.Success = true
	res.Message = fmt.Sprintf("executed %d actions", len(res.Actions))
	return res
}

func (p *Processor) screenshot(ctx context.Context, res *Result) (screen.Screenshot, bool) {
	if p.capture == nil {
		return screen.Screenshot{}, false
	}
	shot, err := p.capture.Capture(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("screenshot failed")
		p.audit.Emit(ctx, audit.ScreenshotTaken, err.Error(), audit.Bool(false), nil)
		return screen.Screenshot{}, false
	}
	res.Screenshots = append(res.Screenshots, shot)
	p.audit.Emit(ctx, audit.ScreenshotTaken, shot.Path, audit.Bool(true), map[string]any{"id": shot.ID})
	p.notifyScreenshot(shot)
	return shot, true
}

func (p *Processor) auditVerdict(ctx context.Context, subject string, v safety.Verdict) {
	msg := subject + ": allowed"
	if !v.Allowed {
		msg = subject + ": " + v.BlockedReason
	}
	p.audit.Emit(ctx, audit.SafetyCheck, msg, audit.Bool(v.Allowed), map[string]any{
		"risk": v.Risk.String(), "warnings": v.Warnings,
	})
}

func (p *Processor) progress(msg string) {
	if p.hooks.Progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("progress hook panicked")
		}
	}()
	p.hooks.Progress(msg)
}

func (p *Processor) notifyScreenshot(shot screen.Screenshot) {
	if p.hooks.Screenshot == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("screenshot hook panicked")
		}
	}()
	p.hooks.Screenshot(shot)
}

// Analysis summarises the current screen.
type Analysis struct {
	Screenshot screen.Screenshot `json:"screenshot"`
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Words      int               `json:"words"`
}

// ScreenAnalysis captures the screen and recognises its text.
func (p *Processor) ScreenAnalysis(ctx context.Context) (Analysis, error) {
	if p.capture == nil || p.ocr == nil {
		return Analysis{}, fmt.Errorf("screen analysis needs capture and ocr")
	}
	shot, err := p.capture.Capture(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("capture screen: %w", err)
	}
	text, err := p.ocr.Extract(ctx, shot)
	if err != nil {
		return Analysis{}, fmt.Errorf("extract screen text: %w", err)
	}
	p.audit.Emit(ctx, audit.OCRPerformed, "screen analysed", audit.Bool(true), map[string]any{
		"screenshot": shot.ID, "words": len(text.Words),
	})
	return Analysis{Screenshot: shot, Text: text.Text, Confidence: text.Confidence, Words: len(text.Words)}, nil
}

// Status reports providers and component statistics.
type Status struct {
	Session   string           `json:"session,omitempty"`
	Providers []planner.Status `json:"providers"`
	Executor  executor.Stats   `json:"executor"`
	Safety    safety.Stats     `json:"safety"`
}

// Status collects the current status.
func (p *Processor) Status(ctx context.Context) Status {
	s := Status{
		Session:  p.audit.Session(),
		Executor: p.exec.Stats(),
		Safety:   p.safety.Stats(),
	}
	if p.planner != nil {
		s.Providers = p.planner.Statuses(ctx)
	}
	return s
}
