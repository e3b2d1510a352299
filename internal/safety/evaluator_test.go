package safety

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newEvaluator(t *testing.T, mutate func(*Config)) (*Evaluator, *fakeClock) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AllowedKinds = action.Kinds()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(cfg, WithClock(clock.now)), clock
}

func act(kind action.Kind, params action.Params) action.Action {
	return action.New(kind, params, 0.9, "", "")
}

func TestMaxRisk(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RiskLow, MaxRisk())
	assert.Equal(t, RiskHigh, MaxRisk(RiskMedium, RiskHigh, RiskLow))
	assert.True(t, RiskLow < RiskMedium && RiskMedium < RiskHigh && RiskHigh < RiskCritical)

	raw, err := json.Marshal(Verdict{Risk: RiskCritical})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"risk":"critical"`)

	var r Risk
	require.NoError(t, r.UnmarshalText([]byte("HIGH")))
	assert.Equal(t, RiskHigh, r)
	assert.Error(t, r.UnmarshalText([]byte("severe")))
}

func TestCheckInstruction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		allowed bool
		risk    Risk
	}{
		{"plain", "点击确定按钮", true, RiskLow},
		{"code exec", "type 'hello' then eval(payload)", false, RiskCritical},
		{"import os", "import os and click", false, RiskCritical},
		{"system keyword", "sudo click the button", false, RiskHigh},
		{"network keyword", "download the malware", false, RiskHigh},
		{"financial keyword", "open my bank page", true, RiskMedium},
		{"inflected network keyword", "show me hacking tools", false, RiskHigh},
		{"keyword inside a word", "click the information panel", false, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newEvaluator(t, nil)
			v := e.CheckInstruction(tt.text)
			assert.Equal(t, tt.allowed, v.Allowed, v.BlockedReason)
			assert.Equal(t, tt.risk, v.Risk)
			assert.Equal(t, !tt.allowed, v.BlockedReason != "")
		})
	}
}

func TestCheckInstruction_CodeExecBeforeLength(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, func(c *Config) { c.MaxInstructionLength = 10 })
	v := e.CheckInstruction("please run exec(rm -rf)")
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskCritical, v.Risk)

	v = e.CheckInstruction("click the big button")
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)
}

func TestCheckAction_Whitelist(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, func(c *Config) { c.AllowedKinds = []action.Kind{action.KindClick} })
	v := e.CheckAction(act(action.KindType, action.Params{"text": "hi"}))
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskHigh, v.Risk)
	assert.Zero(t, e.Stats().ActionsLastMinute)
}

func TestCheckAction_ClickBounds(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, nil)
	e.SetScreenBounds(1920, 1080)

	v := e.CheckAction(act(action.KindClick, action.Params{"x": 99999, "y": 99999, "use_coordinates": true}))
	assert.False(t, v.Allowed)
	assert.NotEmpty(t, v.BlockedReason)

	v = e.CheckAction(act(action.KindClick, action.Params{"x": 1920, "y": 1080, "use_coordinates": true}))
	assert.True(t, v.Allowed)
}

func TestCheckAction_ClickDestructiveTarget(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, nil)
	v := e.CheckAction(act(action.KindClick, action.Params{"target": "Factory Reset"}))
	assert.True(t, v.Allowed)
	assert.Equal(t, RiskHigh, v.Risk)
	assert.NotEmpty(t, v.Warnings)
}

func TestCheckAction_Type(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		allowed  bool
		risk     Risk
		warnings int
	}{
		{"plain", "hello world", true, RiskLow, 0},
		{"system keyword", "sudo rm -rf /", false, RiskHigh, 0},
		{"inflected keyword", "hacking tools", false, RiskHigh, 0},
		{"plural keyword", "download exploits", false, RiskHigh, 0},
		{"compound keyword", "malwares", false, RiskHigh, 0},
		{"inflected sensitive keyword", "banking app", true, RiskMedium, 1},
		{"sensitive keyword", "my password is hunter2", true, RiskMedium, 1},
		{"path", "/etc/hosts", true, RiskMedium, 1},
		{"url", "https://example.com/login", true, RiskMedium, 1},
		{"metachars", "a && b", true, RiskMedium, 1},
		{"executable", "setup.exe", true, RiskMedium, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e, _ := newEvaluator(t, nil)
			v := e.CheckAction(act(action.KindType, action.Params{"text": tt.text}))
			assert.Equal(t, tt.allowed, v.Allowed, v.BlockedReason)
			assert.Equal(t, tt.risk, v.Risk)
			assert.Len(t, v.Warnings, tt.warnings)
		})
	}
}

func TestCheckAction_TypeTooLong(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, func(c *Config) { c.MaxTextLength = 5 })
	v := e.CheckAction(act(action.KindType, action.Params{"text": "你好世界啊"}))
	assert.True(t, v.Allowed)
	v = e.CheckAction(act(action.KindType, action.Params{"text": "abcdef"}))
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)
}

func TestCheckAction_Drag(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, func(c *Config) {
		c.Bounds = screen.Size{Width: 3000, Height: 3000}
		c.DragWarnDistance = 2000
	})

	v := e.CheckAction(act(action.KindDrag, action.Params{"source_x": 0, "source_y": 0, "target_x": 3001, "target_y": 0}))
	assert.False(t, v.Allowed)
	assert.Contains(t, v.BlockedReason, "target_x")

	v = e.CheckAction(act(action.KindDrag, action.Params{"source_x": 0, "source_y": 0, "target_x": 2500, "target_y": 2500}))
	assert.True(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)

	v = e.CheckAction(act(action.KindDrag, action.Params{"source": "a", "target": "b"}))
	assert.True(t, v.Allowed)
	assert.Equal(t, RiskLow, v.Risk)
}

func TestCheckAction_DragNotAllowedByDefault(t *testing.T) {
	t.Parallel()

	e := New(DefaultConfig())
	v := e.CheckAction(act(action.KindDrag, action.Params{"source": "a", "target": "b"}))
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskHigh, v.Risk)
}

func TestCheckAction_Wait(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, nil)
	v := e.CheckAction(act(action.KindWait, action.Params{"duration": 31}))
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)

	v = e.CheckAction(act(action.KindWait, action.Params{"duration": 15}))
	assert.True(t, v.Allowed)
	assert.Len(t, v.Warnings, 1)

	v = e.CheckAction(act(action.KindWait, action.Params{"duration": 2}))
	assert.True(t, v.Allowed)
	assert.Empty(t, v.Warnings)
}

func TestCheckAction_RateLimit(t *testing.T) {
	t.Parallel()

	e, clock := newEvaluator(t, func(c *Config) { c.MaxActionsPerMinute = 3 })
	shot := act(action.KindScreenshot, nil)

	for i := 0; i < 3; i++ {
		require.True(t, e.CheckAction(shot).Allowed, "check %d", i)
		clock.advance(time.Second)
	}
	v := e.CheckAction(shot)
	assert.False(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)
	assert.Equal(t, 3, e.Stats().ActionsLastMinute)

	clock.advance(58 * time.Second)
	assert.True(t, e.CheckAction(shot).Allowed)
}

func TestCheckBatch(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, nil)
	e.SetScreenBounds(1920, 1080)
	verdicts := e.CheckBatch([]action.Action{
		act(action.KindScreenshot, nil),
		act(action.KindClick, action.Params{"x": 5000, "y": 5000}),
		act(action.KindScreenshot, nil),
	})
	require.Len(t, verdicts, 2)
	assert.True(t, verdicts[0].Allowed)
	assert.False(t, verdicts[1].Allowed)
}

func TestCheckBatch_TooLarge(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, func(c *Config) { c.MaxBatchActions = 2 })
	batch := []action.Action{act(action.KindScreenshot, nil), act(action.KindScreenshot, nil), act(action.KindScreenshot, nil)}
	verdicts := e.CheckBatch(batch)
	require.Len(t, verdicts, 3)
	for _, v := range verdicts {
		assert.False(t, v.Allowed)
		assert.Equal(t, RiskHigh, v.Risk)
	}
	assert.Zero(t, e.Stats().ActionsLastMinute)
}

func TestKeywordEdits(t *testing.T) {
	t.Parallel()

	e, _ := newEvaluator(t, nil)
	before := e.Stats().KeywordCount

	e.AddKeyword(CategorySystem, "DROP TABLE")
	assert.Equal(t, before+1, e.Stats().KeywordCount)
	assert.False(t, e.CheckInstruction("please drop table users").Allowed)

	e.AddKeyword(CategorySystem, "drop table")
	assert.Equal(t, before+1, e.Stats().KeywordCount)

	e.RemoveKeyword(CategorySystem, "drop table")
	assert.True(t, e.CheckInstruction("please drop table users").Allowed)

	e.AddKeyword("custom", "机密")
	v := e.CheckInstruction("打开机密文件")
	assert.True(t, v.Allowed)
	assert.Equal(t, RiskMedium, v.Risk)
}
