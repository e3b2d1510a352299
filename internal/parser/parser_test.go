package parser

import (
	"encoding/json"
	"testing"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CompoundInstruction(t *testing.T) {
	t.Parallel()

	got := New().Parse("点击A，然后输入'B'")
	require.Len(t, got, 2)

	assert.Equal(t, action.KindClick, got[0].Kind())
	assert.Equal(t, "A", got[0].String("target"))
	assert.Equal(t, MatchedConfidence, got[0].Confidence())

	assert.Equal(t, action.KindType, got[1].Kind())
	assert.Equal(t, "B", got[1].String("text"))
	assert.Equal(t, "输入'B'", got[1].SourceText())
}

func TestParse_SingleAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		kind   action.Kind
		params map[string]any
	}{
		{"click english", "click on 'Submit'", action.KindClick, map[string]any{"target": "Submit", "use_coordinates": false}},
		{"tap", "tap Login", action.KindClick, map[string]any{"target": "Login"}},
		{"type english", "type 'hello world'", action.KindType, map[string]any{"text": "hello world"}},
		{"scroll default", "向下滚动", action.KindScroll, map[string]any{"direction": "down", "amount": 3}},
		{"scroll up with amount", "向上滚动5次", action.KindScroll, map[string]any{"direction": "up", "amount": 5}},
		{"scroll english", "scroll up", action.KindScroll, map[string]any{"direction": "up"}},
		{"swipe", "上滑", action.KindScroll, map[string]any{"direction": "up"}},
		{"press enter", "press enter", action.KindPressKey, map[string]any{"key": "Return"}},
		{"press esc", "press Esc", action.KindPressKey, map[string]any{"key": "Escape"}},
		{"drag text", "拖拽文件到回收站", action.KindDrag, map[string]any{"source": "文件", "target": "回收站"}},
		{"drag english", "drag 'a.txt' to 'Trash'", action.KindDrag, map[string]any{"source": "a.txt", "target": "Trash"}},
		{"screenshot", "截图", action.KindScreenshot, map[string]any{}},
		{"take screenshot", "take screenshot", action.KindScreenshot, map[string]any{}},
		{"wait seconds", "等待3秒", action.KindWait, map[string]any{"duration": 3}},
		{"wait english", "wait 2 seconds", action.KindWait, map[string]any{"duration": 2}},
		{"wait bare", "等待", action.KindWait, map[string]any{"duration": 1}},
		{"find", "查找'设置'", action.KindFindText, map[string]any{"text": "设置"}},
		{"find english", "find \"Settings\"", action.KindFindText, map[string]any{"text": "Settings"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := New().Parse(tt.input)
			require.Len(t, got, 1)
			assert.Equal(t, tt.kind, got[0].Kind())
			params := got[0].Params()
			for k, want := range tt.params {
				assert.Equal(t, want, params[k], "param %s", k)
			}
		})
	}
}

func TestParse_ClickCoordinates(t *testing.T) {
	t.Parallel()

	got := New().Parse("点击坐标(100, 200)")
	require.Len(t, got, 1)
	a := got[0]
	assert.Equal(t, action.KindClick, a.Kind())
	assert.True(t, a.Bool("use_coordinates"))
	x, _ := a.Int("x")
	y, _ := a.Int("y")
	assert.Equal(t, 100, x)
	assert.Equal(t, 200, y)
}

func TestParse_DragCoordinates(t *testing.T) {
	t.Parallel()

	got := New().Parse("拖动从(100, 200)到(300, 400)")
	require.Len(t, got, 1)
	var p action.DragParams
	require.NoError(t, action.Decode(got[0], &p))
	require.True(t, p.HasCoordinates())
	assert.Equal(t, []int{100, 200, 300, 400}, []int{*p.SourceX, *p.SourceY, *p.TargetX, *p.TargetY})
}

func TestParse_Inference(t *testing.T) {
	t.Parallel()

	got := New().Parse("随便写点什么 'hello'")
	require.Len(t, got, 1)
	assert.Equal(t, action.KindType, got[0].Kind())
	assert.Equal(t, "hello", got[0].String("text"))
	assert.Equal(t, InferredTypeConfidence, got[0].Confidence())

	got = New().Parse("打开浏览器")
	require.Len(t, got, 1)
	assert.Equal(t, action.KindClick, got[0].Kind())
	assert.Equal(t, "打开浏览器", got[0].String("target"))
	assert.Equal(t, InferredClickConfidence, got[0].Confidence())
}

func TestParse_DeclarationOrder(t *testing.T) {
	t.Parallel()

	// The generic click trigger on 按 precedes the key-press rules.
	got := New().Parse("按回车")
	require.Len(t, got, 1)
	assert.Equal(t, action.KindClick, got[0].Kind())
	assert.Equal(t, "回车", got[0].String("target"))
}

func TestParse_UnrecognisedAndInvalid(t *testing.T) {
	t.Parallel()

	p := New()
	assert.Empty(t, p.Parse("hello world"))
	assert.Empty(t, p.Parse(""))

	res := p.Analyze("点击确定；输入''；blah")
	require.Len(t, res.Actions, 1)
	assert.Equal(t, action.KindClick, res.Actions[0].Kind())
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "输入''", res.Skipped[0].Fragment)
	assert.Equal(t, "blah", res.Skipped[1].Fragment)
	assert.Equal(t, "no matching pattern", res.Skipped[1].Reason)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"点击A，然后输入'B'", []string{"点击A", "输入'B'"}},
		{"点击确定，接着等待2秒，再截图", []string{"点击确定", "等待2秒", "截图"}},
		{"click OK and then type 'hi'", []string{"click OK", "type 'hi'"}},
		{"click OK, then scroll down", []string{"click OK", "scroll down"}},
		{"截图;等待1秒；截屏", []string{"截图", "等待1秒", "截屏"}},
		{"输入'a, b'，截图", []string{"输入'a, b'", "截图"}},
		{"点击(10, 20)，截图", []string{"点击(10, 20)", "截图"}},
		{"click Don't Save, then press enter", []string{"click Don't Save", "press enter"}},
		{"输入'abc，然后点击B", []string{"输入'abc", "点击B"}},
		{`type "a, b, then press enter`, []string{`type "a`, "b", "press enter"}},
		{"type 'it's fine; ok'，截图", []string{"type 'it's fine; ok'", "截图"}},
		{" ，， ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestAnalyze_UnclosedQuoteKeepsLaterFragments(t *testing.T) {
	t.Parallel()

	p := New()
	actions := p.Parse("click Don't Save, then press enter")
	require.Len(t, actions, 2)
	assert.Equal(t, action.KindClick, actions[0].Kind())
	assert.Equal(t, action.KindPressKey, actions[1].Kind())

	res := p.Analyze("输入'abc，然后点击B")
	assert.Len(t, res.Actions, 1)
	assert.Len(t, res.Skipped, 1)
	assert.Equal(t, action.KindClick, res.Actions[0].Kind())
	assert.Equal(t, "B", res.Actions[0].String("target"))
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()

	in := "点击登录，然后输入'admin'，向下滚动，等待2秒"
	a, err := json.Marshal(New().Parse(in))
	require.NoError(t, err)
	b, err := json.Marshal(New().Parse(in))
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestFromDescriptor_RoundTrip(t *testing.T) {
	t.Parallel()

	orig := action.New(action.KindWait, action.Params{"duration": 3}, 0.8, "", "wait a bit")
	raw, err := json.Marshal(orig)
	require.NoError(t, err)

	var desc map[string]any
	require.NoError(t, json.Unmarshal(raw, &desc))

	got, ok := New().FromDescriptor(desc)
	require.True(t, ok)
	assert.Equal(t, action.KindWait, got.Kind())
	d, _ := got.Int("duration")
	assert.Equal(t, 3, d)
	assert.Equal(t, 0.8, got.Confidence())
	assert.Equal(t, "wait a bit", got.Description())
}

func TestFromDescriptor_Defaults(t *testing.T) {
	t.Parallel()

	got, ok := New().FromDescriptor(map[string]any{"action": "screenshot"})
	require.True(t, ok)
	assert.Equal(t, action.KindScreenshot, got.Kind())
	assert.Equal(t, DescriptorConfidence, got.Confidence())
	assert.Empty(t, got.Params())
}

func TestFromDescriptor_Malformed(t *testing.T) {
	t.Parallel()

	p := New()
	for name, item := range map[string]any{
		"not an object":     "click",
		"missing action":    map[string]any{"parameters": map[string]any{}},
		"unknown kind":      map[string]any{"action": "find_element"},
		"non-string action": map[string]any{"action": 7},
		"bad parameters":    map[string]any{"action": "click", "parameters": []any{1}},
	} {
		_, ok := p.FromDescriptor(item)
		assert.False(t, ok, name)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	p := New()
	got := p.ParseJSON(`[
		{"action":"click","parameters":{"target":"OK"}},
		{"parameters":{"text":"x"}},
		{"action":"type","parameters":{"text":"hi"},"confidence":0.5}
	]`)
	require.Len(t, got, 2)
	assert.Equal(t, action.KindClick, got[0].Kind())
	assert.Equal(t, 0.5, got[1].Confidence())

	single := p.ParseJSON(`{"action":"press_key","parameters":{"key":"Return"}}`)
	require.Len(t, single, 1)
	assert.Equal(t, "Return", single[0].String("key"))

	assert.Empty(t, p.ParseJSON(`{not json`))
	assert.Empty(t, p.ParseJSON(`42`))
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	p := New()
	assert.Contains(t, p.Suggest("点击"), "点击确定按钮")
	assert.Contains(t, p.Suggest("scroll"), "scroll down")
	defaults := p.Suggest("")
	assert.Len(t, defaults, maxSuggestions)
	defaults[0] = "mutated"
	assert.Equal(t, "点击登录按钮", p.Suggest("")[0])
}
