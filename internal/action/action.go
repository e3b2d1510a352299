// Package action defines the typed UI operations produced by the parser and
// consumed by the safety evaluator and the executor.
package action

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"
)

// Kind is the closed set of operations the system can perform.
type Kind string

// Supported action kinds.
const (
	KindClick      Kind = "click"
	KindType       Kind = "type"
	KindScroll     Kind = "scroll"
	KindPressKey   Kind = "press_key"
	KindDrag       Kind = "drag"
	KindScreenshot Kind = "screenshot"
	KindWait       Kind = "wait"
	KindFindText   Kind = "find_text"
)

var allKinds = []Kind{
	KindClick,
	KindType,
	KindScroll,
	KindPressKey,
	KindDrag,
	KindScreenshot,
	KindWait,
	KindFindText,
}

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range allKinds {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

func (k Kind) String() string { return string(k) }

// Params holds kind-specific parameters keyed by name.
type Params map[string]any

// Action is one parsed operation. It is never mutated after creation; Params
// returns a copy.
type Action struct {
	kind        Kind
	params      Params
	confidence  float64
	source      string
	description string
}

// New creates an action. The params map is copied.
func New(kind Kind, params Params, confidence float64, source, description string) Action {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	p := make(Params, len(params))
	maps.Copy(p, params)
	if description == "" {
		description = Describe(kind, p)
	}
	return Action{
		kind:        kind,
		params:      p,
		confidence:  confidence,
		source:      source,
		description: description,
	}
}

// Kind returns the action kind.
func (a Action) Kind() Kind { return a.kind }

// Confidence returns the score in [0,1].
func (a Action) Confidence() float64 { return a.confidence }

// SourceText returns the instruction fragment the action was derived from.
func (a Action) SourceText() string { return a.source }

// Description returns a human-readable summary.
func (a Action) Description() string { return a.description }

// Params returns a copy of the parameters.
func (a Action) Params() Params {
	p := make(Params, len(a.params))
	maps.Copy(p, a.params)
	return p
}

// Has reports whether the parameter key is present.
func (a Action) Has(key string) bool {
	_, ok := a.params[key]
	return ok
}

// Param returns the raw value for key.
func (a Action) Param(key string) (any, bool) {
	v, ok := a.params[key]
	return v, ok
}

// String returns the parameter as a string, or "" when absent or nil.
func (a Action) String(key string) string {
	v, ok := a.params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the parameter converted to int.
func (a Action) Int(key string) (int, bool) {
	v, ok := a.params[key]
	if !ok || v == nil {
		return 0, false
	}
	var out int
	if err := weakDecode(v, &out); err != nil {
		return 0, false
	}
	return out, true
}

// Float returns the parameter converted to float64.
func (a Action) Float(key string) (float64, bool) {
	v, ok := a.params[key]
	if !ok || v == nil {
		return 0, false
	}
	var out float64
	if err := weakDecode(v, &out); err != nil {
		return 0, false
	}
	return out, true
}

// Bool returns the parameter converted to bool; absent means false.
func (a Action) Bool(key string) bool {
	v, ok := a.params[key]
	if !ok || v == nil {
		return false
	}
	var out bool
	if err := weakDecode(v, &out); err != nil {
		return false
	}
	return out
}

type actionJSON struct {
	Action      Kind    `json:"action"`
	Parameters  Params  `json:"parameters"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
	SourceText  string  `json:"source_text,omitempty"`
}

// MarshalJSON renders the action in the planner descriptor shape.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		Action:      a.kind,
		Parameters:  a.params,
		Confidence:  a.confidence,
		Description: a.description,
		SourceText:  a.source,
	})
}

// MarshalYAML renders the same shape as MarshalJSON.
func (a Action) MarshalYAML() (any, error) {
	return map[string]any{
		"action":      string(a.kind),
		"parameters":  map[string]any(a.params),
		"confidence":  a.confidence,
		"description": a.description,
		"source_text": a.source,
	}, nil
}

// Describe builds the default description "kind: {k=v ...}".
func Describe(kind Kind, params Params) string {
	return fmt.Sprintf("%s: %v", kind, map[string]any(params))
}
