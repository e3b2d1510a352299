package parser

import (
	"regexp"

	"github.com/metalagman/screenpilot/internal/action"
)

// rule binds a kind to its trigger patterns. Rules and their patterns are
// tried in declaration order and the first match wins.
type rule struct {
	kind     action.Kind
	patterns []*regexp.Regexp
}

func ci(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

var rules = []rule{
	{
		kind: action.KindClick,
		patterns: []*regexp.Regexp{
			ci(`点击\s*["']?([^"']*)["']?`),
			ci(`click\s+(?:on\s+)?["']?([^"']*)["']?`),
			ci(`tap\s+(?:on\s+)?["']?([^"']*)["']?`),
			ci(`按\s*["']?([^"']*)["']?`),
			ci(`选择\s*["']?([^"']*)["']?`),
		},
	},
	{
		kind: action.KindType,
		patterns: []*regexp.Regexp{
			ci(`输入\s*["']([^"']*)["']`),
			ci(`type\s+["']([^"']*)["']`),
			ci(`写\s*["']([^"']*)["']`),
			ci(`填写\s*["']([^"']*)["']`),
			ci(`enter\s+["']([^"']*)["']`),
		},
	},
	{
		kind: action.KindScroll,
		patterns: []*regexp.Regexp{
			ci(`向(上|下|左|右)滚动`),
			ci(`滚动\s*(上|下|左|右)?`),
			ci(`scroll\s*(up|down|left|right)?`),
			ci(`(上|下|左|右)滑`),
		},
	},
	{
		kind: action.KindPressKey,
		patterns: []*regexp.Regexp{
			ci(`按\s*(回车|空格|删除|退格|Tab|Esc|Enter|Space|Delete|Backspace)`),
			ci(`press\s+(enter|space|delete|backspace|tab|esc|return)`),
			ci(`键盘按\s*([A-Za-z0-9]+)`),
		},
	},
	{
		kind: action.KindDrag,
		patterns: []*regexp.Regexp{
			ci(`拖动\s*从\s*[(（]\s*(\d+)\s*[,，]\s*(\d+)\s*[)）]\s*到\s*[(（]\s*(\d+)\s*[,，]\s*(\d+)\s*[)）]`),
			ci(`drag\s+from\s+\(\s*(\d+)\s*,\s*(\d+)\s*\)\s+to\s+\(\s*(\d+)\s*,\s*(\d+)\s*\)`),
			ci(`拖拽\s*["']?([^"']*)["']?\s*到\s*["']?([^"']*)["']?`),
			ci(`drag\s+["']?([^"']*)["']?\s+to\s+["']?([^"']*)["']?`),
		},
	},
	{
		kind: action.KindScreenshot,
		patterns: []*regexp.Regexp{
			ci(`截图|截屏`),
			ci(`screenshot`),
			ci(`capture\s+screen`),
			ci(`take\s+screenshot`),
		},
	},
	{
		kind: action.KindWait,
		patterns: []*regexp.Regexp{
			ci(`等待\s*(\d+)\s*秒?`),
			ci(`wait\s+(\d+)\s*seconds?`),
			ci(`暂停\s*(\d+)\s*秒?`),
			ci(`sleep\s+(\d+)`),
			ci(`等待|暂停|\bwait\b`),
		},
	},
	{
		kind: action.KindFindText,
		patterns: []*regexp.Regexp{
			ci(`查找\s*["']([^"']*)["']`),
			ci(`find\s+["']([^"']*)["']`),
			ci(`搜索\s*["']([^"']*)["']`),
			ci(`寻找\s*["']([^"']*)["']`),
		},
	},
}

// separators split compound instructions; applied in order, each to every
// fragment produced so far.
var separators = []*regexp.Regexp{
	ci(`[，,]\s*然后`),
	ci(`[，,]\s*接着`),
	ci(`[，,]\s*再`),
	ci(`[，,]?\s*and then\b`),
	ci(`[，,]\s*then\b`),
	ci(`[；;]`),
	ci(`[，,]`),
}

var (
	coordinatePattern = regexp.MustCompile(`[(（]\s*(\d+)\s*[,，]\s*(\d+)\s*[)）]`)
	numberPattern     = regexp.MustCompile(`(\d+)`)
	quotedPattern     = regexp.MustCompile(`["']([^"']*)["']`)
)

var directions = map[string]string{
	"上":     "up",
	"下":     "down",
	"左":     "left",
	"右":     "right",
	"up":    "up",
	"down":  "down",
	"left":  "left",
	"right": "right",
}

// keyNames maps spoken key names to automation key identifiers. Lookups use
// the lower-cased token.
var keyNames = map[string]string{
	"回车":        "Return",
	"空格":        "space",
	"删除":        "Delete",
	"退格":        "BackSpace",
	"tab":       "Tab",
	"esc":       "Escape",
	"enter":     "Return",
	"space":     "space",
	"delete":    "Delete",
	"backspace": "BackSpace",
	"return":    "Return",
}

var launchKeywords = []string{"打开", "启动", "运行", "open", "launch", "run"}
