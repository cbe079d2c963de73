// Package lockfile serializes writers of a shared file through an advisory
// lock on a sibling "<path>.lock" file.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLockBusy is returned by TryAcquire when another holder has the lock.
var ErrLockBusy = errors.New("lock is held by another process")

// Lock is a held lock. Release it when done.
type Lock struct {
	f    *os.File
	path string
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

func open(path string) (*os.File, string, error) {
	lockPath := path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o750); err != nil {
		return nil, "", fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600) // #nosec G304 - derived from a config path
	if err != nil {
		return nil, "", fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, lockPath, nil
}

// Acquire blocks until it holds the exclusive lock for path.
func Acquire(path string) (*Lock, error) {
	f, lockPath, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	return &Lock{f: f, path: lockPath}, nil
}

// TryAcquire takes the exclusive lock for path without waiting. It returns
// ErrLockBusy when the lock is held elsewhere.
func TryAcquire(path string) (*Lock, error) {
	f, lockPath, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := flockExclusiveNonBlock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	return &Lock{f: f, path: lockPath}, nil
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := flockUnlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
