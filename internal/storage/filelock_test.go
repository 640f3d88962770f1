package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	lock, err := LockSession(path)
	require.NoError(t, err)

	_, err = LockSession(path)
	assert.ErrorIs(t, err, ErrWouldBlock)

	require.NoError(t, lock.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "lock file should be removed, stat err=%v", err)
	assert.NoError(t, lock.Release(), "second release")

	again, err := LockSession(path)
	require.NoError(t, err, "lock should be free after release")
	assert.NoError(t, again.Release())
}

func TestSessionLock_NilRelease(t *testing.T) {
	var lock *SessionLock
	assert.NoError(t, lock.Release())
}

func TestSessionLock_CannotOpenFile(t *testing.T) {
	fileAsDir := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(fileAsDir, []byte("i am a file"), 0644))

	_, err := LockSession(filepath.Join(fileAsDir, "the.lock"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrWouldBlock))
}
