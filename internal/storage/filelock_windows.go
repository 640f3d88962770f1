//go:build windows

package storage

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// lockRange covers the first byte of the file, which is all LockFileEx needs
// for an advisory lock.
func lockRange(f *os.File, lock bool) error {
	var ol windows.Overlapped
	h := windows.Handle(f.Fd())
	if !lock {
		return windows.UnlockFileEx(h, 0, 1, 0, &ol)
	}
	return windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &ol)
}

func lockFile(f *os.File) error {
	err := lockRange(f, true)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, windows.ERROR_LOCK_VIOLATION):
		return ErrWouldBlock
	}
	return fmt.Errorf("LockFileEx %s: %w", f.Name(), err)
}

func unlockFile(f *os.File) error {
	if err := lockRange(f, false); err != nil {
		return fmt.Errorf("UnlockFileEx %s: %w", f.Name(), err)
	}
	return nil
}
