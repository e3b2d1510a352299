package executor

import (
	"context"
	"time"

	"github.com/metalagman/screenpilot/internal/action"
	"github.com/metalagman/screenpilot/internal/screen"
)

func (e *Executor) dispatch(ctx context.Context, a action.Action) Result {
	switch a.Kind() {
	case action.KindClick:
		return e.click(ctx, a)
	case action.KindType:
		return e.typeText(ctx, a)
	case action.KindScroll:
		return e.scroll(ctx, a)
	case action.KindPressKey:
		return e.pressKey(ctx, a)
	case action.KindDrag:
		return e.drag(ctx, a)
	case action.KindScreenshot:
		return e.screenshot(ctx, a)
	case action.KindWait:
		return e.wait(ctx, a)
	case action.KindFindText:
		return e.findText(ctx, a)
	}
	return fail("unsupported action kind %q", a.Kind())
}

func (e *Executor) click(ctx context.Context, a action.Action) Result {
	var p action.ClickParams
	if err := action.Decode(a, &p); err != nil {
		return fail("click: %v", err)
	}
	if p.HasCoordinates() {
		if err := e.auto.Click(ctx, *p.X, *p.Y); err != nil {
			return fail("click at (%d, %d): %v", *p.X, *p.Y, err)
		}
		res := ok("clicked at (%d, %d)", *p.X, *p.Y)
		res.Data = map[string]any{"x": *p.X, "y": *p.Y}
		return res
	}
	if p.Target != "" {
		pt, res, found := e.locate(ctx, p.Target)
		if !found {
			return res
		}
		if err := e.auto.Click(ctx, pt.X, pt.Y); err != nil {
			return fail("click %q: %v", p.Target, err)
		}
		res = ok("clicked %q at %s", p.Target, pt)
		res.Data = map[string]any{"x": pt.X, "y": pt.Y}
		return res
	}
	c := e.cfg.Bounds.Center()
	if err := e.auto.Click(ctx, c.X, c.Y); err != nil {
		return fail("click screen center: %v", err)
	}
	res := ok("clicked screen center %s", c)
	res.Data = map[string]any{"x": c.X, "y": c.Y}
	return res
}

func (e *Executor) typeText(ctx context.Context, a action.Action) Result {
	var p action.TypeParams
	if err := action.Decode(a, &p); err != nil {
		return fail("type: %v", err)
	}
	if p.Text == "" {
		return fail("type: empty text")
	}
	runes := []rune(p.Text)
	for i, r := range runes {
		if err := e.auto.Type(ctx, string(r)); err != nil {
			return fail("type: %v", err)
		}
		if i < len(runes)-1 {
			if err := e.sleep(ctx, e.cfg.TypeInterval); err != nil {
				return fail("type interrupted: %v", err)
			}
		}
	}
	return ok("typed %d characters", len(runes))
}

func (e *Executor) scroll(ctx context.Context, a action.Action) Result {
	var p action.ScrollParams
	if err := action.Decode(a, &p); err != nil {
		return fail("scroll: %v", err)
	}
	if p.Amount == 0 && !a.Has("amount") {
		p.Amount = 3
	}
	var err error
	switch p.Direction {
	case "down":
		err = e.auto.Scroll(ctx, p.Amount, false)
	case "up":
		err = e.auto.Scroll(ctx, -p.Amount, false)
	case "right":
		err = e.auto.Scroll(ctx, p.Amount, true)
	case "left":
		err = e.auto.Scroll(ctx, -p.Amount, true)
	default:
		return fail("scroll: unknown direction %q", p.Direction)
	}
	if err != nil {
		return fail("scroll %s: %v", p.Direction, err)
	}
	return ok("scrolled %s by %d", p.Direction, p.Amount)
}

func (e *Executor) pressKey(ctx context.Context, a action.Action) Result {
	var p action.PressKeyParams
	if err := action.Decode(a, &p); err != nil {
		return fail("press_key: %v", err)
	}
	if p.Key == "" {
		return fail("press_key: empty key")
	}
	if err := e.auto.Press(ctx, p.Key); err != nil {
		return fail("press %s: %v", p.Key, err)
	}
	return ok("pressed %s", p.Key)
}

func (e *Executor) drag(ctx context.Context, a action.Action) Result {
	var p action.DragParams
	if err := action.Decode(a, &p); err != nil {
		return fail("drag: %v", err)
	}
	var x1, y1, x2, y2 int
	if p.HasCoordinates() {
		x1, y1, x2, y2 = *p.SourceX, *p.SourceY, *p.TargetX, *p.TargetY
	} else {
		src, res, found := e.locate(ctx, p.Source)
		if !found {
			return res
		}
		dst, res, found := e.locate(ctx, p.Target)
		if !found {
			return res
		}
		x1, y1, x2, y2 = src.X, src.Y, dst.X, dst.Y
	}
	if err := e.auto.Drag(ctx, x1, y1, x2, y2, e.cfg.DragDuration); err != nil {
		return fail("drag: %v", err)
	}
	res := ok("dragged from (%d, %d) to (%d, %d)", x1, y1, x2, y2)
	res.Data = map[string]any{"source_x": x1, "source_y": y1, "target_x": x2, "target_y": y2}
	return res
}

func (e *Executor) screenshot(ctx context.Context, a action.Action) Result {
	if e.capture == nil {
		return fail("screenshot: no capture backend")
	}
	var p action.ScreenshotParams
	if err := action.Decode(a, &p); err != nil {
		return fail("screenshot: %v", err)
	}
	shot, err := e.capture.Capture(ctx)
	if err != nil {
		return fail("screenshot: %v", err)
	}
	res := ok("screenshot captured")
	if p.SavePath != "" {
		if err := shot.Save(p.SavePath); err != nil {
			return fail("screenshot: %v", err)
		}
		res = ok("screenshot saved to %s", p.SavePath)
	}
	res.Screenshot = &shot
	return res
}

func (e *Executor) wait(ctx context.Context, a action.Action) Result {
	var p action.WaitParams
	if err := action.Decode(a, &p); err != nil {
		return fail("wait: %v", err)
	}
	d := time.Duration(p.Duration * float64(time.Second))
	if err := e.sleep(ctx, d); err != nil {
		return fail("wait interrupted: %v", err)
	}
	return ok("waited %gs", p.Duration)
}

func (e *Executor) findText(ctx context.Context, a action.Action) Result {
	var p action.FindTextParams
	if err := action.Decode(a, &p); err != nil {
		return fail("find_text: %v", err)
	}
	pt, res, found := e.locate(ctx, p.Text)
	if !found {
		return res
	}
	res = ok("found %q at %s", p.Text, pt)
	res.Data = map[string]any{"x": pt.X, "y": pt.Y}
	return res
}

// locate resolves text through the locator. When not found, the returned
// result is the failure to report.
func (e *Executor) locate(ctx context.Context, text string) (screen.Point, Result, bool) {
	if e.locator == nil {
		return screen.Point{}, fail("target not found: %q (no locator)", text), false
	}
	pt, found, err := e.locator.Locate(ctx, text)
	if err != nil {
		return screen.Point{}, fail("locate %q: %v", text, err), false
	}
	if !found {
		return screen.Point{}, fail("target not found: %q", text), false
	}
	return pt, Result{}, true
}
