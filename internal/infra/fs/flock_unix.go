//go:build !windows

package fs

import (
	"errors"
	"os"
	"syscall"
)

// tryFlockExclusive takes an exclusive lock without blocking
func tryFlockExclusive(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return ErrLocked
	}
	return err
}

// flockUnlock releases the lock on the file
func flockUnlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
