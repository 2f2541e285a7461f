//go:build windows

package fs

import (
	"os"
)

// tryFlockExclusive is a no-op on Windows, so concurrent runs are not detected there
func tryFlockExclusive(f *os.File) error {
	return nil
}

// flockUnlock is a no-op on Windows
func flockUnlock(f *os.File) error {
	return nil
}
