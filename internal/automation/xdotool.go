// Package automation implements the UI primitives used by the executor.
package automation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/metalagman/screenpilot/internal/command"
	"github.com/metalagman/screenpilot/internal/screen"
)

// X11 mouse buttons used for wheel scrolling.
const (
	buttonLeft       = "1"
	buttonWheelUp    = "4"
	buttonWheelDown  = "5"
	buttonWheelLeft  = "6"
	buttonWheelRight = "7"
)

// Xdotool drives an X11 session through the xdotool binary.
type Xdotool struct {
	runner command.Runner
	bin    string
}

// NewXdotool creates a driver. An empty bin means "xdotool" on PATH.
func NewXdotool(runner command.Runner, bin string) *Xdotool {
	if bin == "" {
		bin = "xdotool"
	}
	return &Xdotool{runner: runner, bin: bin}
}

func (x *Xdotool) run(ctx context.Context, args ...string) error {
	if _, err := x.runner.Output(ctx, x.bin, args...); err != nil {
		return fmt.Errorf("xdotool %s: %w", args[0], err)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }

// Click moves the pointer and clicks the left button.
func (x *Xdotool) Click(ctx context.Context, px, py int) error {
	return x.run(ctx, "mousemove", itoa(px), itoa(py), "click", buttonLeft)
}

// Type types text literally.
func (x *Xdotool) Type(ctx context.Context, text string) error {
	return x.run(ctx, "type", "--delay", "0", "--", text)
}

// Scroll clicks the wheel buttons amount times; negative scrolls up or left.
func (x *Xdotool) Scroll(ctx context.Context, amount int, horizontal bool) error {
	if amount == 0 {
		return nil
	}
	button := buttonWheelDown
	switch {
	case horizontal && amount > 0:
		button = buttonWheelRight
	case horizontal:
		button = buttonWheelLeft
	case amount < 0:
		button = buttonWheelUp
	}
	if amount < 0 {
		amount = -amount
	}
	return x.run(ctx, "click", "--repeat", itoa(amount), button)
}

// Press sends one key event using X keysym names such as Return.
func (x *Xdotool) Press(ctx context.Context, key string) error {
	return x.run(ctx, "key", "--", key)
}

// Drag presses at the source, moves to the target over d and releases.
func (x *Xdotool) Drag(ctx context.Context, x1, y1, x2, y2 int, d time.Duration) error {
	half := strconv.FormatFloat(d.Seconds()/2, 'f', 3, 64)
	return x.run(ctx,
		"mousemove", itoa(x1), itoa(y1),
		"mousedown", buttonLeft,
		"sleep", half,
		"mousemove", itoa(x2), itoa(y2),
		"sleep", half,
		"mouseup", buttonLeft,
	)
}

// ScreenSize queries the display geometry.
func (x *Xdotool) ScreenSize(ctx context.Context) (screen.Size, error) {
	out, err := x.runner.Output(ctx, x.bin, "getdisplaygeometry")
	if err != nil {
		return screen.Size{}, fmt.Errorf("xdotool getdisplaygeometry: %w", err)
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 {
		return screen.Size{}, fmt.Errorf("parse display geometry %q", strings.TrimSpace(string(out)))
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	if errW != nil || errH != nil {
		return screen.Size{}, fmt.Errorf("parse display geometry %q", strings.TrimSpace(string(out)))
	}
	return screen.Size{Width: w, Height: h}, nil
}
