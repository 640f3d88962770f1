package storage

import (
	"fmt"
	"sync"
)

// InMemoryBackend keeps transcripts in a process-wide map keyed by session,
// so separate instances for the same session observe each other's writes.
type InMemoryBackend struct {
	sessionID string
}

var globalInMemoryStore = struct {
	sync.RWMutex
	sessions map[string]map[string][]byte
}{
	sessions: make(map[string]map[string][]byte),
}

// NewInMemoryBackend creates an in-memory backend.
func NewInMemoryBackend(sessionID string) (*InMemoryBackend, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}
	return &InMemoryBackend{sessionID: sessionID}, nil
}

// ReadTranscript returns a copy of the persona's transcript, or (nil, nil).
func (b *InMemoryBackend) ReadTranscript(persona string) ([]byte, error) {
	if err := ValidatePersona(persona); err != nil {
		return nil, err
	}
	globalInMemoryStore.RLock()
	defer globalInMemoryStore.RUnlock()
	data, ok := globalInMemoryStore.sessions[b.sessionID][persona]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

// AppendTranscript appends line plus a newline.
func (b *InMemoryBackend) AppendTranscript(persona, line string) error {
	if err := ValidatePersona(persona); err != nil {
		return err
	}
	globalInMemoryStore.Lock()
	defer globalInMemoryStore.Unlock()
	transcripts := globalInMemoryStore.sessions[b.sessionID]
	if transcripts == nil {
		transcripts = make(map[string][]byte)
		globalInMemoryStore.sessions[b.sessionID] = transcripts
	}
	transcripts[persona] = append(transcripts[persona], line+"\n"...)
	return nil
}

// DeleteTranscripts drops every transcript of the session.
func (b *InMemoryBackend) DeleteTranscripts() error {
	globalInMemoryStore.Lock()
	delete(globalInMemoryStore.sessions, b.sessionID)
	globalInMemoryStore.Unlock()
	return nil
}

// Close is a no-op.
func (b *InMemoryBackend) Close() error { return nil }

// ClearAllInMemoryTranscripts resets the shared in-memory store. Tests only.
func ClearAllInMemoryTranscripts() {
	globalInMemoryStore.Lock()
	globalInMemoryStore.sessions = make(map[string]map[string][]byte)
	globalInMemoryStore.Unlock()
}

var _ Backend = (*InMemoryBackend)(nil)
