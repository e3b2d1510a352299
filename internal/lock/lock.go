// Package lock provides the exclusive process lock that keeps two CLI
// invocations from driving the same desktop at once.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by TryAcquire when another process holds the lock.
var ErrLocked = errors.New("another screenpilot run is in progress")

const fileName = "ui.lock"

// UILock is a held exclusive lock on <dir>/locks/ui.lock.
type UILock struct {
	fl *flock.Flock
}

func open(dir string) (*flock.Flock, error) {
	locksDir := filepath.Join(dir, "locks")
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create locks dir: %w", err)
	}
	return flock.New(filepath.Join(locksDir, fileName)), nil
}

// Acquire blocks until the lock is held.
func Acquire(dir string) (*UILock, error) {
	fl, err := open(dir)
	if err != nil {
		return nil, err
	}
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", fileName, err)
	}
	return &UILock{fl: fl}, nil
}

// TryAcquire takes the lock without blocking and returns ErrLocked when it
// is held elsewhere.
func TryAcquire(dir string) (*UILock, error) {
	fl, err := open(dir)
	if err != nil {
		return nil, err
	}
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fileName, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &UILock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *UILock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}

// Release releases the lock. Releasing a nil lock is a no-op.
func (l *UILock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", fileName, err)
	}
	return nil
}
