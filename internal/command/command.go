// Package command runs the external desktop tools (xdotool, screenshot
// utilities, tesseract) behind a small interface so callers can be tested
// with fakes.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Runner runs a program and returns its stdout.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Exec runs programs with os/exec.
type Exec struct {
	Dir string
}

// Output runs name with args. On failure the error carries the trimmed
// stderr.
func (e Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	log.Debug().Str("dir", e.Dir).Str("cmd", name).Strs("args", args).Msg("running command")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Available reports whether name resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// IsNotFound reports whether err means the program is not installed.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}
