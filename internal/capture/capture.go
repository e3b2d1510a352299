// Package capture takes whole-screen screenshots through an external tool.
package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decode jpeg captures
	_ "image/png"  // decode png captures
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/metalagman/screenpilot/internal/command"
	"github.com/metalagman/screenpilot/internal/screen"
	"github.com/rs/zerolog/log"
)

// DefaultCommand captures the root window with ImageMagick.
const DefaultCommand = "import -window root {path}"

const pathPlaceholder = "{path}"

// Tool runs a shell-style command template that writes an image to {path}.
type Tool struct {
	runner   command.Runner
	argv     []string
	dir      string
	ext      string
	now      func() time.Time
	newID    func() string
	fallback screen.Size
}

// Option customises a Tool.
type Option func(*Tool)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tool) { t.now = now }
}

// WithIDs overrides screenshot id generation.
func WithIDs(newID func() string) Option {
	return func(t *Tool) { t.newID = newID }
}

// WithFallbackSize sets the size reported when the image cannot be decoded.
func WithFallbackSize(s screen.Size) Option {
	return func(t *Tool) { t.fallback = s }
}

// New parses template and returns a Tool writing PNG files under dir.
func New(runner command.Runner, template, dir string, opts ...Option) (*Tool, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultCommand
	}
	argv, err := shellquote.Split(template)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	if !strings.Contains(template, pathPlaceholder) {
		return nil, fmt.Errorf("capture command %q has no %s placeholder", template, pathPlaceholder)
	}
	t := &Tool{
		runner: runner,
		argv:   argv,
		dir:    dir,
		ext:    ".png",
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Dir returns the directory captures are written to.
func (t *Tool) Dir() string { return t.dir }

// Capture runs the command and returns a handle to the written image.
func (t *Tool) Capture(ctx context.Context) (screen.Screenshot, error) {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return screen.Screenshot{}, fmt.Errorf("create capture dir: %w", err)
	}
	id := t.newID()
	path := filepath.Join(t.dir, "screenshot_"+id+t.ext)

	args := make([]string, 0, len(t.argv)-1)
	for _, a := range t.argv[1:] {
		args = append(args, strings.ReplaceAll(a, pathPlaceholder, path))
	}
	if _, err := t.runner.Output(ctx, t.argv[0], args...); err != nil {
		return screen.Screenshot{}, fmt.Errorf("capture screen: %w", err)
	}

	size, err := imageSize(path)
	if err != nil {
		if t.fallback == (screen.Size{}) {
			return screen.Screenshot{}, err
		}
		log.Debug().Err(err).Str("path", path).Msg("using fallback screenshot size")
		size = t.fallback
	}
	shot := screen.Screenshot{ID: id, Path: path, Size: size, TakenAt: t.now()}
	log.Debug().Str("id", id).Str("path", path).Int("width", size.Width).Int("height", size.Height).Msg("screenshot captured")
	return shot, nil
}

func imageSize(path string) (screen.Size, error) {
	f, err := os.Open(path)
	if err != nil {
		return screen.Size{}, fmt.Errorf("open capture: %w", err)
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return screen.Size{}, fmt.Errorf("decode capture %s: %w", path, err)
	}
	return screen.Size{Width: cfg.Width, Height: cfg.Height}, nil
}
