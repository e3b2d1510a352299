package orchestrator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/xeipuuv/gojsonschema"
)

// SystemPrompt describes the plan format to the AI planner.
//
//go:embed system_prompt.md
var SystemPrompt string

//go:embed prompt.gotmpl
var promptTemplate string

// PlanSchema is the JSON schema a planner reply must satisfy.
//
//go:embed plan.schema.json
var PlanSchema string

var (
	promptTmpl = template.Must(template.New("prompt").Parse(promptTemplate))
	planSchema = mustSchema(PlanSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile plan schema: %v", err))
	}
	return s
}

type promptData struct {
	ScreenText  string
	Confidence  float64
	Instruction string
}

func renderPrompt(d promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// Plan is a decoded planner reply. Actions stay raw descriptors so the
// parser decides which ones are usable.
type Plan struct {
	Analysis    string `json:"analysis"`
	Intent      string `json:"intent"`
	Actions     []any  `json:"actions"`
	Explanation string `json:"explanation"`
}

// DecodePlan validates raw against PlanSchema and decodes it. Text around
// a JSON object (prose, markdown fences) is tolerated.
func DecodePlan(raw string) (Plan, error) {
	data := []byte(strings.TrimSpace(raw))
	if !json.Valid(data) {
		extracted, ok := ExtractJSON(data)
		if !ok {
			return Plan{}, fmt.Errorf("decode plan: no JSON object in reply")
		}
		data = extracted
	}
	result, err := planSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Plan{}, fmt.Errorf("validate plan: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		sort.Strings(errs)
		return Plan{}, fmt.Errorf("plan schema validation failed: %s", strings.Join(errs, "; "))
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	return p, nil
}

// ExtractJSON returns the first balanced JSON object in b, preferring the
// body of a ```json fence when one is present.
func ExtractJSON(b []byte) ([]byte, bool) {
	s := string(b)
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			body := strings.TrimSpace(rest[:j])
			if json.Valid([]byte(body)) {
				return []byte(body), true
			}
		}
	}
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok && json.Valid([]byte(s[start:end+1])) {
			return []byte(s[start : end+1]), true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// matchBrace finds the brace closing s[start], skipping string literals.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
