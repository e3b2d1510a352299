package vision

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// Capturer takes whole-screen screenshots.
type Capturer interface {
	Capture(ctx context.Context) (screen.Screenshot, error)
}

// Locator finds text on the current screen.
type Locator struct {
	capture Capturer
	ocr     OCR
}

// NewLocator creates a Locator that captures a fresh screenshot per lookup.
func NewLocator(capture Capturer, ocr OCR) *Locator {
	return &Locator{capture: capture, ocr: ocr}
}

// Locate captures the screen and returns the center of the first match
// for target.
func (l *Locator) Locate(ctx context.Context, target string) (screen.Point, bool, error) {
	shot, err := l.capture.Capture(ctx)
	if err != nil {
		return screen.Point{}, false, fmt.Errorf("capture for locate: %w", err)
	}
	text, err := l.ocr.Extract(ctx, shot)
	if err != nil {
		return screen.Point{}, false, fmt.Errorf("ocr for locate: %w", err)
	}
	box, ok := Find(text, target)
	if !ok {
		log.Debug().Str("target", target).Msg("text not found on screen")
		return screen.Point{}, false, nil
	}
	p := box.Center()
	log.Debug().Str("target", target).Str("point", p.String()).Msg("text located")
	return p, true, nil
}

// Find returns the box of the shortest run of words on one line whose
// text contains target. Matching ignores case and whitespace.
func Find(text Text, target string) (Box, bool) {
	needle := normalize(target)
	if needle == "" {
		return Box{}, false
	}
	for _, line := range text.Lines() {
		if box, ok := findInLine(line, needle); ok {
			return box, true
		}
	}
	return Box{}, false
}

func findInLine(line []Word, needle string) (Box, bool) {
	var (
		best    Box
		bestLen = -1
	)
	for i := range line {
		var joined strings.Builder
		box := line[i].Box
		for j := i; j < len(line); j++ {
			joined.WriteString(normalize(line[j].Text))
			if j > i {
				box = box.Union(line[j].Box)
			}
			if strings.Contains(joined.String(), needle) {
				if bestLen < 0 || j-i < bestLen {
					best, bestLen = box, j-i
				}
				break
			}
		}
	}
	return best, bestLen >= 0
}

func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
