package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrLocked is returned when another process holds the run lock
var ErrLocked = errors.New("another run holds the lock")

// RunLock is an advisory lock on one kata work tree
type RunLock struct {
	f    *os.File
	path string
}

// AcquireRunLock locks path for the lifetime of one run.
// The holder's pid is written into the file for diagnostics.
func AcquireRunLock(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryFlockExclusive(f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			holder, _ := os.ReadFile(path)
			return nil, fmt.Errorf("%w (pid %s): %s", ErrLocked, string(holder), path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	return &RunLock{f: f, path: path}, nil
}

// Release unlocks and removes the lock file
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = os.Remove(l.path)
	unlockErr := flockUnlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
