package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// DryRun logs every primitive instead of touching the desktop.
type DryRun struct {
	Size  screen.Size
	Calls []string
}

// NewDryRun creates a dry-run driver reporting the given screen size.
func NewDryRun(size screen.Size) *DryRun {
	return &DryRun{Size: size}
}

func (d *DryRun) record(format string, args ...any) error {
	call := fmt.Sprintf(format, args...)
	d.Calls = append(d.Calls, call)
	log.Info().Str("call", call).Msg("dry-run")
	return nil
}

// Click records a click.
func (d *DryRun) Click(_ context.Context, x, y int) error {
	return d.record("click %d,%d", x, y)
}

// Type records typed text.
func (d *DryRun) Type(_ context.Context, text string) error {
	return d.record("type %q", text)
}

// Scroll records a scroll.
func (d *DryRun) Scroll(_ context.Context, amount int, horizontal bool) error {
	if horizontal {
		return d.record("hscroll %d", amount)
	}
	return d.record("scroll %d", amount)
}

// Press records a key press.
func (d *DryRun) Press(_ context.Context, key string) error {
	return d.record("key %s", key)
}

// Drag records a drag.
func (d *DryRun) Drag(_ context.Context, x1, y1, x2, y2 int, dur time.Duration) error {
	return d.record("drag %d,%d -> %d,%d in %s", x1, y1, x2, y2, dur)
}

// ScreenSize returns the configured size.
func (d *DryRun) ScreenSize(context.Context) (screen.Size, error) {
	return d.Size, nil
}
