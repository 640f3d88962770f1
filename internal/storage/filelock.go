package storage

import (
	"errors"
	"fmt"
	"os"
)

// ErrWouldBlock is returned by LockSession while the lock is held, usually by
// another courtroom process sharing the same session ID.
var ErrWouldBlock = errors.New("file lock would block")

// SessionLock is an exclusive advisory lock on a file.
type SessionLock struct {
	f *os.File
}

// LockSession takes the lock at path without blocking, creating the file if
// needed. Holders within one process exclude each other too.
func LockSession(path string) (*SessionLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &SessionLock{f: f}, nil
}

// Release drops the lock and deletes the lock file. Releasing twice, or
// releasing a nil lock, does nothing.
func (l *SessionLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	errs := []error{unlockFile(f), f.Close()}
	if err := os.Remove(f.Name()); !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
