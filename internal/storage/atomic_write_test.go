package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile_CreatesAndReplaces(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "nested", "config")

	require.NoError(t, AtomicWriteFile(filename, []byte("round 300\n"), 0600))
	require.NoError(t, AtomicWriteFile(filename, []byte("round 120\n"), 0644))

	got, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t, "round 120\n", string(got))

	entries, err := os.ReadDir(filepath.Dir(filename))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files may be left behind")
}

func TestAtomicWriteFile_RenameFailureCleansUp(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.Mkdir(filename, 0755))
	// a non-empty directory can never be replaced by a file
	require.NoError(t, os.WriteFile(filepath.Join(filename, "child"), nil, 0644))

	err := AtomicWriteFile(filename, []byte("data"), 0644)

	var renameErr RenameError
	require.ErrorAs(t, err, &renameErr)
	_, statErr := os.Stat(renameErr.TempPath())
	assert.True(t, os.IsNotExist(statErr), "temporary file %q was not cleaned up", renameErr.TempPath())
}

func TestAtomicWriteFile_UnwritableDirectory(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0644))

	assert.Error(t, AtomicWriteFile(filepath.Join(parent, "config"), []byte("x"), 0644))
}
