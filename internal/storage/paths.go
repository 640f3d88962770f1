package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Path resolution is held in variables so tests can redirect it to a
// temporary directory.
var (
	sessionsDirectory   = SessionsDirectory
	transcriptDirectory = TranscriptDirectory
	sessionLockFilePath = SessionLockFilePath
)

// SetTestPaths points all path functions at dir. Tests only.
func SetTestPaths(dir string) {
	sessionsDirectory = func() (string, error) { return dir, nil }
	transcriptDirectory = func(id string) (string, error) {
		return filepath.Join(dir, id), nil
	}
	sessionLockFilePath = func(id string) (string, error) {
		return filepath.Join(dir, id+".session.lock"), nil
	}
}

// ResetPaths restores the default path functions. Tests only.
func ResetPaths() {
	sessionsDirectory = SessionsDirectory
	transcriptDirectory = TranscriptDirectory
	sessionLockFilePath = SessionLockFilePath
}

// SessionsDirectory returns {UserConfigDir}/courtroom/sessions.
func SessionsDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "courtroom", "sessions"), nil
}

// TranscriptDirectory returns the directory holding the transcripts of a
// session: {SessionsDirectory}/{session_id}.
func TranscriptDirectory(sessionID string) (string, error) {
	dir, err := sessionsDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionID), nil
}

// SessionLockFilePath returns {SessionsDirectory}/{session_id}.session.lock.
func SessionLockFilePath(sessionID string) (string, error) {
	dir, err := sessionsDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionID+".session.lock"), nil
}

// TranscriptFileName returns the file name used for a persona transcript.
func TranscriptFileName(persona string) string {
	return persona + ".transcript.txt"
}
