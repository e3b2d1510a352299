package action

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ClickParams are the parameters of a click.
type ClickParams struct {
	Target         string `mapstructure:"target"`
	X              *int   `mapstructure:"x"`
	Y              *int   `mapstructure:"y"`
	UseCoordinates bool   `mapstructure:"use_coordinates"`
}

// HasCoordinates reports whether both coordinates were supplied.
func (p ClickParams) HasCoordinates() bool {
	return p.X != nil && p.Y != nil
}

// TypeParams are the parameters of a type action.
type TypeParams struct {
	Text string `mapstructure:"text"`
}

// ScrollParams are the parameters of a scroll.
type ScrollParams struct {
	Direction string `mapstructure:"direction"`
	Amount    int    `mapstructure:"amount"`
}

// PressKeyParams are the parameters of a key press.
type PressKeyParams struct {
	Key string `mapstructure:"key"`
}

// DragParams are the parameters of a drag, either textual or by coordinates.
type DragParams struct {
	Source         string `mapstructure:"source"`
	Target         string `mapstructure:"target"`
	SourceX        *int   `mapstructure:"source_x"`
	SourceY        *int   `mapstructure:"source_y"`
	TargetX        *int   `mapstructure:"target_x"`
	TargetY        *int   `mapstructure:"target_y"`
	UseCoordinates bool   `mapstructure:"use_coordinates"`
}

// HasCoordinates reports whether all four coordinates were supplied.
func (p DragParams) HasCoordinates() bool {
	return p.SourceX != nil && p.SourceY != nil && p.TargetX != nil && p.TargetY != nil
}

// ScreenshotParams are the parameters of a screenshot.
type ScreenshotParams struct {
	SavePath string `mapstructure:"save_path"`
}

// WaitParams are the parameters of a wait, in seconds.
type WaitParams struct {
	Duration float64 `mapstructure:"duration"`
}

// FindTextParams are the parameters of a find_text.
type FindTextParams struct {
	Text string `mapstructure:"text"`
}

// Decode converts the action parameters into one of the *Params structs.
// Values are decoded weakly so JSON numbers and numeric strings both work.
func Decode(a Action, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(a.params)); err != nil {
		return fmt.Errorf("decode %s parameters: %w", a.kind, err)
	}
	return nil
}

func weakDecode(in, out any) error {
	return mapstructure.WeakDecode(in, out)
}
