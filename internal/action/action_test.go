package action

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesParamsAndClampsConfidence(t *testing.T) {
	t.Parallel()

	params := Params{"text": "hello"}
	a := New(KindType, params, 1.5, "type 'hello'", "")
	params["text"] = "changed"

	assert.Equal(t, "hello", a.String("text"))
	assert.Equal(t, 1.0, a.Confidence())
	assert.Equal(t, "type: map[text:hello]", a.Description())

	got := a.Params()
	got["text"] = "mutated"
	assert.Equal(t, "hello", a.String("text"))
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds() {
		got, ok := ParseKind(" " + string(k) + " ")
		require.True(t, ok, k)
		assert.Equal(t, k, got)
	}
	got, ok := ParseKind("CLICK")
	assert.True(t, ok)
	assert.Equal(t, KindClick, got)

	_, ok = ParseKind("find_element")
	assert.False(t, ok)
}

func TestAccessors_WeakConversion(t *testing.T) {
	t.Parallel()

	a := New(KindClick, Params{
		"x":               float64(100),
		"y":               "200",
		"use_coordinates": "true",
		"target":          nil,
	}, 0.9, "", "")

	x, ok := a.Int("x")
	require.True(t, ok)
	assert.Equal(t, 100, x)
	y, ok := a.Int("y")
	require.True(t, ok)
	assert.Equal(t, 200, y)
	assert.True(t, a.Bool("use_coordinates"))
	assert.Equal(t, "", a.String("target"))

	_, ok = a.Int("missing")
	assert.False(t, ok)
}

func TestDecode_ClickParams(t *testing.T) {
	t.Parallel()

	a := New(KindClick, Params{"target": "OK", "x": 10.0, "y": 20}, 0.9, "", "")
	var p ClickParams
	require.NoError(t, Decode(a, &p))
	assert.Equal(t, "OK", p.Target)
	require.True(t, p.HasCoordinates())
	assert.Equal(t, 10, *p.X)
	assert.Equal(t, 20, *p.Y)

	var d DragParams
	require.NoError(t, Decode(New(KindDrag, Params{"source": "a", "target": "b"}, 0.9, "", ""), &d))
	assert.False(t, d.HasCoordinates())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		kind  Kind
		param Params
		valid bool
	}{
		{"click target", KindClick, Params{"target": "OK"}, true},
		{"click empty target", KindClick, Params{"target": ""}, true},
		{"click coords", KindClick, Params{"x": 1, "y": 2}, true},
		{"click nothing", KindClick, Params{}, false},
		{"type text", KindType, Params{"text": "hi"}, true},
		{"type empty", KindType, Params{"text": ""}, false},
		{"scroll", KindScroll, Params{"direction": "down"}, true},
		{"scroll missing", KindScroll, Params{"amount": 3}, false},
		{"press key", KindPressKey, Params{"key": "Return"}, true},
		{"press missing", KindPressKey, Params{}, false},
		{"drag text", KindDrag, Params{"source": "a", "target": "b"}, true},
		{"drag coords", KindDrag, Params{"source_x": 1, "source_y": 2, "target_x": 3, "target_y": 4}, true},
		{"drag partial", KindDrag, Params{"source_x": 1, "target": "b"}, false},
		{"screenshot", KindScreenshot, Params{}, true},
		{"wait", KindWait, Params{"duration": 3}, true},
		{"wait zero", KindWait, Params{"duration": 0}, false},
		{"find", KindFindText, Params{"text": "x"}, true},
		{"find empty", KindFindText, Params{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(New(tt.kind, tt.param, 0.9, "", ""))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidParams), "error = %v", err)
		})
	}
}

func TestMarshalJSON_DescriptorShape(t *testing.T) {
	t.Parallel()

	a := New(KindWait, Params{"duration": 3}, 0.95, "", "wait a bit")
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"wait","parameters":{"duration":3},"confidence":0.95,"description":"wait a bit"}`, string(raw))
}
