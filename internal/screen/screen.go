// Package screen holds the values exchanged with the capture, OCR and
// target-location collaborators.
package screen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Point is an absolute pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Size is a screen or image size in pixels.
type Size struct {
	Width  int `json:"width"  mapstructure:"width"  yaml:"width"`
	Height int `json:"height" mapstructure:"height" yaml:"height"`
}

// Contains reports whether p lies within [0,Width]x[0,Height].
func (s Size) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x <= s.Width && y <= s.Height
}

// Center returns the geometric center.
func (s Size) Center() Point {
	return Point{X: s.Width / 2, Y: s.Height / 2}
}

// Screenshot is a handle to a captured whole-screen image stored on disk.
type Screenshot struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Size    Size      `json:"size"`
	TakenAt time.Time `json:"taken_at"`
}

// Save copies the captured image to dst.
func (s Screenshot) Save(dst string) error {
	if s.Path == "" {
		return fmt.Errorf("screenshot %s has no backing file", s.ID)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	in, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open screenshot: %w", err)
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy screenshot: %w", err)
	}
	return out.Close()
}
