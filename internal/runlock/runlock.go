// Package runlock keeps two digest runs from overlapping, for example a
// cron invocation firing while the daemon is mid-run.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("another run is in progress")

// Lock is an advisory file lock.
type Lock struct {
	path string
}

// New returns a Lock backed by the file at path. An empty path uses
// jobdigest.lock in the OS temp directory.
func New(path string) *Lock {
	if path == "" {
		path = filepath.Join(os.TempDir(), "jobdigest.lock")
	}
	return &Lock{path: path}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Do runs fn while holding the lock. It does not wait: if the lock is
// taken it returns ErrHeld without calling fn.
func (l *Lock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", ErrHeld, l.path)
	}
	defer fl.Unlock()

	return fn(ctx)
}
