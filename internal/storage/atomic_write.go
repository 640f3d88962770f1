package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// RenameError is returned by AtomicWriteFile when the final rename fails.
// The temporary file has been removed by then.
type RenameError struct {
	Err      error
	tempPath string
}

func (e RenameError) Error() string    { return e.Err.Error() }
func (e RenameError) Unwrap() error    { return e.Err }
func (e RenameError) TempPath() string { return e.tempPath }

// AtomicWriteFile replaces filename with data. The data goes to a synced
// temporary file in the same directory, which is then renamed over
// filename, so readers see either the old content or the new.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := writeTemp(dir, data, perm)
	if tmp != "" {
		defer func() {
			if err == nil {
				return
			}
			if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("failed to remove temporary file", "path", tmp, "error", rmErr)
			}
		}()
	}
	if err != nil {
		return err
	}

	if err := atomicRename(tmp, filename); err != nil {
		return RenameError{Err: err, tempPath: tmp}
	}
	return nil
}

// writeTemp writes data to a new file in dir and returns its name, which is
// set whenever the file was created.
func writeTemp(dir string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, ".tmp-courtroom-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(name, perm)
	}
	if err != nil {
		return name, fmt.Errorf("failed to write temp file %q: %w", name, err)
	}
	return name, nil
}
