// Package parser turns natural-language instructions and planner descriptors
// into ordered action sequences.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/rs/zerolog/log"
)

// Confidence scores assigned by the parser.
const (
	MatchedConfidence       = 0.9
	InferredClickConfidence = 0.6
	InferredTypeConfidence  = 0.7
	DescriptorConfidence    = 0.9

	defaultScrollAmount = 3
	defaultWaitSeconds  = 1
)

// Skipped is a fragment that produced no action.
type Skipped struct {
	Fragment string `json:"fragment"`
	Reason   string `json:"reason"`
}

// Result is the detailed outcome of parsing one instruction.
type Result struct {
	Actions []action.Action `json:"actions"`
	Skipped []Skipped       `json:"skipped,omitempty"`
}

// Parser is stateless and safe for concurrent use.
type Parser struct{}

// New returns a parser.
func New() *Parser {
	return &Parser{}
}

// Parse converts an instruction into an ordered list of actions. Fragments
// that are not recognised are dropped; use Analyze to see them.
func (p *Parser) Parse(instruction string) []action.Action {
	return p.Analyze(instruction).Actions
}

// Analyze is Parse plus the list of fragments that yielded nothing.
func (p *Parser) Analyze(instruction string) Result {
	var res Result
	for _, fragment := range Split(instruction) {
		a, ok := p.parseFragment(fragment)
		if !ok {
			log.Debug().Str("fragment", fragment).Msg("parser: fragment not recognised")
			res.Skipped = append(res.Skipped, Skipped{Fragment: fragment, Reason: "no matching pattern"})
			continue
		}
		if err := action.Validate(a); err != nil {
			log.Debug().Str("fragment", fragment).Err(err).Msg("parser: action dropped")
			res.Skipped = append(res.Skipped, Skipped{Fragment: fragment, Reason: err.Error()})
			continue
		}
		res.Actions = append(res.Actions, a)
	}
	return res
}

// Validate reports whether the action satisfies its kind's required keys.
func (p *Parser) Validate(a action.Action) bool {
	return action.Validate(a) == nil
}

// Split breaks a compound instruction into fragments, preserving order and
// dropping empty ones. Delimiters inside parentheses or quotes are kept.
func Split(instruction string) []string {
	protected := protect(strings.TrimSpace(instruction))
	parts := []string{protected}
	for _, sep := range separators {
		next := make([]string, 0, len(parts))
		for _, part := range parts {
			next = append(next, sep.Split(part, -1)...)
		}
		parts = next
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(restore(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

const (
	protectedComma         = '\x00'
	protectedWideComma     = '\x01'
	protectedSemicolon     = '\x02'
	protectedWideSemicolon = '\x03'
)

// protect masks delimiters inside parentheses and closed quotes. A quote
// without a closing partner, or an apostrophe inside a word, is literal.
func protect(s string) string {
	rs := []rune(s)
	var b strings.Builder
	depth := 0
	closeAt := -1
	for i, r := range rs {
		switch {
		case closeAt >= 0:
			if i == closeAt {
				closeAt = -1
			}
		case isQuote(rs, i):
			closeAt = closingQuote(rs, i)
		case r == '(' || r == '（':
			depth++
		case (r == ')' || r == '）') && depth > 0:
			depth--
		}
		if closeAt >= 0 || depth > 0 {
			switch r {
			case ',':
				r = protectedComma
			case '，':
				r = protectedWideComma
			case ';':
				r = protectedSemicolon
			case '；':
				r = protectedWideSemicolon
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isQuote(rs []rune, i int) bool {
	switch rs[i] {
	case '"':
		return true
	case '\'':
		contraction := i > 0 && i+1 < len(rs) && isASCIILetter(rs[i-1]) && isASCIILetter(rs[i+1])
		return !contraction
	}
	return false
}

func closingQuote(rs []rune, open int) int {
	for j := open + 1; j < len(rs); j++ {
		if rs[j] == rs[open] && isQuote(rs, j) {
			return j
		}
	}
	return -1
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func restore(s string) string {
	return strings.NewReplacer(
		string(protectedComma), ",",
		string(protectedWideComma), "，",
		string(protectedSemicolon), ";",
		string(protectedWideSemicolon), "；",
	).Replace(s)
}

func (p *Parser) parseFragment(fragment string) (action.Action, bool) {
	for _, r := range rules {
		for _, re := range r.patterns {
			m := re.FindStringSubmatch(fragment)
			if m == nil {
				continue
			}
			return build(r.kind, m[1:], fragment), true
		}
	}
	return infer(fragment)
}

func group(groups []string, i int) string {
	if i < len(groups) {
		return groups[i]
	}
	return ""
}

func build(kind action.Kind, groups []string, fragment string) action.Action {
	params := action.Params{}
	switch kind {
	case action.KindClick:
		params["target"] = strings.TrimSpace(group(groups, 0))
		params["use_coordinates"] = false
		if m := coordinatePattern.FindStringSubmatch(fragment); m != nil {
			params["x"] = atoi(m[1])
			params["y"] = atoi(m[2])
			params["use_coordinates"] = true
		}
	case action.KindType, action.KindFindText:
		params["text"] = group(groups, 0)
	case action.KindScroll:
		dir, ok := directions[strings.ToLower(group(groups, 0))]
		if !ok {
			dir = "down"
		}
		params["direction"] = dir
		params["amount"] = defaultScrollAmount
		if m := numberPattern.FindStringSubmatch(fragment); m != nil {
			params["amount"] = atoi(m[1])
		}
	case action.KindPressKey:
		key := group(groups, 0)
		if mapped, ok := keyNames[strings.ToLower(key)]; ok {
			key = mapped
		}
		params["key"] = key
	case action.KindDrag:
		if len(groups) >= 4 {
			params["source_x"] = atoi(groups[0])
			params["source_y"] = atoi(groups[1])
			params["target_x"] = atoi(groups[2])
			params["target_y"] = atoi(groups[3])
			params["use_coordinates"] = true
		} else {
			params["source"] = strings.TrimSpace(group(groups, 0))
			params["target"] = strings.TrimSpace(group(groups, 1))
		}
	case action.KindWait:
		params["duration"] = defaultWaitSeconds
		if s := group(groups, 0); s != "" {
			params["duration"] = atoi(s)
		}
	case action.KindScreenshot:
	}
	return action.New(kind, params, MatchedConfidence, fragment, "")
}

func infer(fragment string) (action.Action, bool) {
	lower := strings.ToLower(fragment)
	for _, kw := range launchKeywords {
		if strings.Contains(lower, kw) {
			return action.New(action.KindClick,
				action.Params{"target": fragment, "use_coordinates": false},
				InferredClickConfidence, fragment,
				fmt.Sprintf("inferred click: %s", fragment)), true
		}
	}
	if m := quotedPattern.FindStringSubmatch(fragment); m != nil {
		return action.New(action.KindType,
			action.Params{"text": m[1]},
			InferredTypeConfidence, fragment,
			fmt.Sprintf("inferred type: %s", m[1])), true
	}
	return action.Action{}, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// FromDescriptor converts one planner descriptor
// ({action, parameters, description, confidence}) into an action without
// any pattern matching. Malformed descriptors and unknown kinds yield false.
func (p *Parser) FromDescriptor(item any) (action.Action, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		log.Debug().Interface("descriptor", item).Msg("parser: descriptor is not an object")
		return action.Action{}, false
	}
	name, _ := m["action"].(string)
	kind, ok := action.ParseKind(name)
	if !ok {
		log.Debug().Str("action", name).Msg("parser: unknown descriptor kind")
		return action.Action{}, false
	}
	params := action.Params{}
	if raw, present := m["parameters"]; present && raw != nil {
		pm, ok := raw.(map[string]any)
		if !ok {
			log.Debug().Str("action", name).Msg("parser: descriptor parameters are not an object")
			return action.Action{}, false
		}
		for k, v := range pm {
			params[k] = v
		}
	}
	confidence := DescriptorConfidence
	if c, ok := m["confidence"].(float64); ok {
		confidence = c
	}
	description, _ := m["description"].(string)
	source, err := json.Marshal(m)
	if err != nil {
		return action.Action{}, false
	}
	return action.New(kind, params, confidence, string(source), description), true
}

// FromDescriptors converts a list of descriptors, silently skipping the
// entries that cannot be converted.
func (p *Parser) FromDescriptors(items []any) []action.Action {
	out := make([]action.Action, 0, len(items))
	for _, item := range items {
		if a, ok := p.FromDescriptor(item); ok {
			out = append(out, a)
		}
	}
	return out
}

// ParseJSON accepts a JSON array of descriptors or a single descriptor
// object. Invalid JSON yields no actions.
func (p *Parser) ParseJSON(raw string) []action.Action {
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		log.Debug().Err(err).Msg("parser: invalid descriptor json")
		return nil
	}
	switch v := data.(type) {
	case []any:
		return p.FromDescriptors(v)
	case map[string]any:
		if a, ok := p.FromDescriptor(v); ok {
			return []action.Action{a}
		}
	}
	return nil
}

var suggestionSets = []struct {
	triggers    []string
	suggestions []string
}{
	{[]string{"点击", "click"}, []string{"点击确定按钮", "点击取消", "点击(100, 200)", "click on submit button"}},
	{[]string{"输入", "type"}, []string{"输入'用户名'", "输入密码", "type 'hello world'"}},
	{[]string{"滚动", "scroll"}, []string{"向下滚动", "向上滚动5次", "scroll down"}},
}

var defaultSuggestions = []string{"点击登录按钮", "输入'用户名'", "向下滚动", "截图", "等待3秒", "按回车键"}

const maxSuggestions = 5

// Suggest returns example instructions for a partially typed one.
func (p *Parser) Suggest(partial string) []string {
	lower := strings.ToLower(partial)
	out := defaultSuggestions
	for _, set := range suggestionSets {
		if containsAny(lower, set.triggers) {
			out = set.suggestions
			break
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return append([]string(nil), out...)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
