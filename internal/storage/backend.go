// Package storage persists per-persona conversation transcripts for a single
// play session.
package storage

// Backend defines the contract for transcript persistence.
//
// A transcript is a flat, append-only sequence of newline-terminated lines.
// Implementations are bound to one session ID and must be safe for use by
// multiple goroutines.
type Backend interface {
	// ReadTranscript returns the raw transcript bytes for persona.
	// It MUST return (nil, nil) if no transcript exists.
	ReadTranscript(persona string) ([]byte, error)

	// AppendTranscript appends a single line to the persona's transcript.
	// A trailing newline is added. Earlier content is never rewritten.
	AppendTranscript(persona, line string) error

	// DeleteTranscripts removes every transcript belonging to the session.
	DeleteTranscripts() error

	// Close releases any resources held by the backend, such as the
	// session lock.
	Close() error
}
