package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListSessionIDs returns the IDs of sessions that have a transcript
// directory on disk, sorted. Tombstones left by an interrupted delete are
// skipped.
func ListSessionIDs() ([]string, error) {
	dir, err := sessionsDirectory()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.Contains(e.Name(), ".deleted-") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// ListPersonas returns the personas with a transcript file in the session,
// sorted.
func ListPersonas(sessionID string) ([]string, error) {
	dir, err := transcriptDirectory(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}
	suffix := TranscriptFileName("")
	var personas []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) || name == suffix {
			continue
		}
		personas = append(personas, strings.TrimSuffix(name, suffix))
	}
	sort.Strings(personas)
	return personas, nil
}

// ReadTranscriptFile reads a persisted transcript without taking the session
// lock, so a running game can be inspected. It returns (nil, nil) if absent.
func ReadTranscriptFile(sessionID, persona string) ([]byte, error) {
	if err := ValidatePersona(persona); err != nil {
		return nil, err
	}
	dir, err := transcriptDirectory(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, TranscriptFileName(persona)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return data, nil
}
