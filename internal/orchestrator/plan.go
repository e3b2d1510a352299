package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/audit"
	"github.com/metalagman/screenpilot/internal/planner"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// HeuristicConfidence is assigned to actions scraped from a non-JSON reply.
const HeuristicConfidence = 0.7

// Plan sources, in the order they are tried.
const (
	SourceAI        = "ai"
	SourceHeuristic = "ai_text"
	SourceRules     = "rules"
)

// ErrEmptyPlan means a stage ran but produced no actions.
var ErrEmptyPlan = errors.New("no actions in plan")

var errSkipped = errors.New("stage skipped")

// planState is shared by the planning stages of one instruction.
type planState struct {
	instruction string
	opts        Options
	shot        *screen.Screenshot
	reply       string
	decodeErr   error
	explanation string
}

type stage struct {
	name string
	run  func(ctx context.Context, st *planState) ([]action.Action, error)
}

func (p *Processor) stages() []stage {
	return []stage{
		{name: SourceAI, run: p.planWithAI},
		{name: SourceHeuristic, run: p.planFromReplyText},
		{name: SourceRules, run: p.planWithRules},
	}
}

// plan runs the stages in order and returns the first non-empty plan.
func (p *Processor) plan(ctx context.Context, st *planState) ([]action.Action, string) {
	for _, s := range p.stages() {
		actions, err := s.run(ctx, st)
		if err == nil && len(actions) > 0 {
			log.Info().Str("source", s.name).Int("actions", len(actions)).Msg("plan ready")
			return actions, s.name
		}
		switch {
		case errors.Is(err, errSkipped):
			log.Debug().Str("stage", s.name).Err(err).Msg("planning stage skipped")
		case err != nil:
			log.Warn().Str("stage", s.name).Err(err).Msg("planning stage fell through")
		}
	}
	return nil, ""
}

func (p *Processor) planWithAI(ctx context.Context, st *planState) ([]action.Action, error) {
	switch {
	case !st.opts.UseAI:
		return nil, fmt.Errorf("%w: ai disabled", errSkipped)
	case p.planner == nil:
		return nil, fmt.Errorf("%w: no planner configured", errSkipped)
	case st.shot == nil:
		return nil, fmt.Errorf("%w: no screenshot for context", errSkipped)
	}

	data := promptData{Instruction: st.instruction}
	if p.ocr != nil {
		text, err := p.ocr.Extract(ctx, *st.shot)
		if err != nil {
			log.Warn().Err(err).Msg("ocr failed, planning without screen text")
		} else {
			data.ScreenText, data.Confidence = text.Text, text.Confidence
			p.audit.Emit(ctx, audit.OCRPerformed, "screen text extracted", audit.Bool(true), map[string]any{
				"screenshot": st.shot.ID, "words": len(text.Words), "confidence": text.Confidence,
			})
		}
	}
	prompt, err := renderPrompt(data)
	if err != nil {
		return nil, err
	}

	p.progress("planning with AI")
	resp, err := p.planner.Generate(ctx, planner.Request{Prompt: prompt, System: SystemPrompt, Provider: st.opts.Provider})
	if err != nil {
		p.audit.Emit(ctx, audit.LLMCalled, err.Error(), audit.Bool(false), map[string]any{"provider": st.opts.Provider})
		return nil, fmt.Errorf("ai planner: %w", err)
	}
	p.audit.Emit(ctx, audit.LLMCalled, "plan generated", audit.Bool(true), map[string]any{
		"provider": resp.Provider, "model": resp.Model, "chars": len(resp.Text),
	})
	st.reply = resp.Text

	plan, err := DecodePlan(resp.Text)
	if err != nil {
		st.decodeErr = err
		return nil, err
	}
	st.explanation = plan.Explanation
	actions := p.parser.FromDescriptors(plan.Actions)
	if len(actions) == 0 {
		return nil, ErrEmptyPlan
	}
	return actions, nil
}

// planFromReplyText scrapes actions from a reply that was not valid plan
// JSON. It never fails on content; an empty result falls through.
func (p *Processor) planFromReplyText(_ context.Context, st *planState) ([]action.Action, error) {
	if st.reply == "" || st.decodeErr == nil {
		return nil, fmt.Errorf("%w: no undecodable reply", errSkipped)
	}
	st.explanation = st.reply
	actions := HeuristicActions(st.reply)
	if len(actions) == 0 {
		return nil, ErrEmptyPlan
	}
	return actions, nil
}

func (p *Processor) planWithRules(_ context.Context, st *planState) ([]action.Action, error) {
	res := p.parser.Analyze(st.instruction)
	for _, s := range res.Skipped {
		log.Info().Str("fragment", s.Fragment).Str("reason", s.Reason).Msg("instruction fragment ignored")
	}
	if len(res.Actions) == 0 {
		return nil, ErrEmptyPlan
	}
	return res.Actions, nil
}

// HeuristicActions turns every line mentioning a click into a click on
// that line's text and every line mentioning typing into typing it.
func HeuristicActions(reply string) []action.Action {
	var out []action.Action
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(line, "点击") || strings.Contains(lower, "click"):
			out = append(out, action.New(action.KindClick,
				action.Params{"target": line, "use_coordinates": false},
				HeuristicConfidence, line, line))
		case strings.Contains(line, "输入") || strings.Contains(lower, "type"):
			out = append(out, action.New(action.KindType,
				action.Params{"text": line},
				HeuristicConfidence, line, line))
		}
	}
	return out
}
