package action

import (
	"errors"
	"fmt"
)

// ErrInvalidParams reports that an action is missing a required parameter.
var ErrInvalidParams = errors.New("invalid action parameters")

// Validate checks the required-key contract for the action's kind.
//
// click needs a target key (may be empty, meaning screen center) or both x
// and y; type and find_text need non-empty text; scroll needs direction;
// press_key needs key; drag needs source+target or all four coordinates;
// wait needs a positive duration.
func Validate(a Action) error {
	switch a.kind {
	case KindClick:
		if a.Has("target") || (a.Has("x") && a.Has("y")) {
			return nil
		}
		return invalid(a.kind, "target or x/y required")
	case KindType:
		if a.String("text") == "" {
			return invalid(a.kind, "text required")
		}
		return nil
	case KindScroll:
		if !a.Has("direction") {
			return invalid(a.kind, "direction required")
		}
		return nil
	case KindPressKey:
		if !a.Has("key") {
			return invalid(a.kind, "key required")
		}
		return nil
	case KindDrag:
		if a.Has("source") && a.Has("target") {
			return nil
		}
		if a.Has("source_x") && a.Has("source_y") && a.Has("target_x") && a.Has("target_y") {
			return nil
		}
		return invalid(a.kind, "source/target or four coordinates required")
	case KindScreenshot:
		return nil
	case KindWait:
		d, ok := a.Float("duration")
		if !ok || d <= 0 {
			return invalid(a.kind, "positive duration required")
		}
		return nil
	case KindFindText:
		if a.String("text") == "" {
			return invalid(a.kind, "text required")
		}
		return nil
	}
	return fmt.Errorf("%w: unsupported kind %q", ErrInvalidParams, a.kind)
}

func invalid(kind Kind, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParams, kind, reason)
}
