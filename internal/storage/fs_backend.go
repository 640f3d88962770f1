package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FileSystemBackend stores each persona transcript as a plain text file
// under the session's transcript directory.
type FileSystemBackend struct {
	mu        sync.Mutex
	sessionID string
	lock      *SessionLock
}

// NewFileSystemBackend creates a file system backend. It takes an exclusive
// lock on the session so two processes never interleave writes to the same
// transcripts.
func NewFileSystemBackend(sessionID string) (*FileSystemBackend, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	sessionsDir, err := sessionsDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions directory: %w", err)
	}
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	lockPath, err := sessionLockFilePath(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lock file path: %w", err)
	}
	lock, err := LockSession(lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	return &FileSystemBackend{sessionID: sessionID, lock: lock}, nil
}

func (b *FileSystemBackend) transcriptPath(persona string) (string, error) {
	if err := ValidatePersona(persona); err != nil {
		return "", err
	}
	dir, err := transcriptDirectory(b.sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TranscriptFileName(persona)), nil
}

// ReadTranscript returns the persona's transcript, or (nil, nil) if absent.
func (b *FileSystemBackend) ReadTranscript(persona string) ([]byte, error) {
	path, err := b.transcriptPath(persona)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return data, nil
}

// AppendTranscript appends line plus a newline to the persona's transcript.
func (b *FileSystemBackend) AppendTranscript(persona, line string) error {
	path, err := b.transcriptPath(persona)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close transcript: %w", err)
	}
	return nil
}

// DeleteTranscripts removes the session's transcript directory. The directory
// is first renamed to a tombstone, so a concurrent reader sees either every
// transcript or none.
func (b *FileSystemBackend) DeleteTranscripts() error {
	dir, err := transcriptDirectory(b.sessionID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tombstone := dir + ".deleted-" + uuid.NewString()
	if err := os.Rename(dir, tombstone); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to move transcripts aside: %w", err)
	}
	if err := os.RemoveAll(tombstone); err != nil {
		return fmt.Errorf("failed to remove transcripts: %w", err)
	}
	return nil
}

// Close releases the session lock.
func (b *FileSystemBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.lock.Release(); err != nil {
		return fmt.Errorf("failed to release session lock: %w", err)
	}
	return nil
}

// ErrInvalidPersona is returned for a persona name that is not a safe file
// name component.
var ErrInvalidPersona = errors.New("invalid persona name")

// ValidatePersona rejects persona names that cannot name a transcript file.
func ValidatePersona(persona string) error {
	if persona == "" || persona == "." || persona == ".." ||
		strings.ContainsAny(persona, `/\:`) || strings.ContainsRune(persona, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidPersona, persona)
	}
	return nil
}

var _ Backend = (*FileSystemBackend)(nil)
