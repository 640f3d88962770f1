// Package transcript keeps the per-persona conversation history of a play
// session, in memory and mirrored to a storage.Backend.
package transcript

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeycumines/courtroom/internal/storage"
)

// IOError reports a failed transcript read or write. The in-memory copy is
// unaffected by it.
type IOError struct {
	Op      string
	Persona string
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("transcript %s %q: %v", e.Op, e.Persona, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Generation identifies the store contents between two ClearAll calls.
// Persisting a line recorded under an older generation is a no-op.
type Generation uint64

// Store holds one ordered transcript per persona.
//
// Record and Persist are split so the caller can keep the in-memory append
// on its own goroutine and move the file write elsewhere. Append does both.
type Store struct {
	backend storage.Backend
	logger  *slog.Logger
	labels  map[string]Labels

	// io is held exclusively by ClearAll and shared by everything else.
	io sync.RWMutex

	mu     sync.Mutex
	gen    Generation
	lines  map[string][]Line
	loaded map[string]bool
}

// Option configures a Store.
type Option func(*Store)

// WithLabels sets the labels written for persona.
func WithLabels(persona string, labels Labels) Option {
	return func(s *Store) { s.labels[persona] = labels }
}

// WithLogger sets the logger used for swallowed I/O errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a store. A nil backend keeps transcripts in memory only.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		labels:  make(map[string]Labels),
		lines:   make(map[string][]Line),
		loaded:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Labels returns the labels used for persona.
func (s *Store) Labels(persona string) Labels {
	return s.labels[persona].orDefault()
}

// Load hydrates the given personas from the backend. A failed read is logged
// and the persona starts empty.
func (s *Store) Load(personas ...string) {
	s.io.RLock()
	defer s.io.RUnlock()
	for _, p := range personas {
		s.hydrate(p)
	}
}

// hydrate must be called with s.io held.
func (s *Store) hydrate(persona string) {
	s.mu.Lock()
	done, cleared := s.loaded[persona], s.gen > 0
	s.mu.Unlock()
	if done {
		return
	}

	// after a ClearAll, memory is authoritative even if the delete failed
	var parsed []Line
	if s.backend != nil && !cleared {
		data, err := s.backend.ReadTranscript(persona)
		if err != nil {
			s.logger.Warn("transcript read failed, starting empty",
				"error", &IOError{Op: "read", Persona: persona, Err: err})
		} else {
			parsed = Parse(data, s.Labels(persona))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[persona] {
		return
	}
	s.loaded[persona] = true
	// lines recorded before hydration finished are newer than the file
	s.lines[persona] = append(parsed, s.lines[persona]...)
}

// Record appends a line in memory only and returns the generation it was
// recorded under.
func (s *Store) Record(persona string, speaker Speaker, text string) Generation {
	s.io.RLock()
	defer s.io.RUnlock()
	s.hydrate(persona)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[persona] = append(s.lines[persona], Line{Speaker: speaker, Text: text})
	return s.gen
}

// Persist writes a line to the backend unless the store was cleared since
// gen. Lines for the same persona must be persisted in the order they were
// recorded.
func (s *Store) Persist(gen Generation, persona string, speaker Speaker, text string) error {
	s.io.RLock()
	defer s.io.RUnlock()

	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale || s.backend == nil {
		return nil
	}

	line := FormatLine(Line{Speaker: speaker, Text: text}, s.Labels(persona))
	if err := s.backend.AppendTranscript(persona, line); err != nil {
		return &IOError{Op: "append", Persona: persona, Err: err}
	}
	return nil
}

// Append records the line in memory and then persists it. The in-memory
// append always happens; a returned *IOError only means the file copy is
// behind.
func (s *Store) Append(persona string, speaker Speaker, text string) error {
	gen := s.Record(persona, speaker, text)
	return s.Persist(gen, persona, speaker, text)
}

// Read returns a copy of the persona's transcript in chronological order.
func (s *Store) Read(persona string) []Line {
	s.io.RLock()
	defer s.io.RUnlock()
	s.hydrate(persona)
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines[persona]...)
}

// HasUserLine reports whether the player has said anything to persona.
func (s *Store) HasUserLine(persona string) bool {
	for _, l := range s.Read(persona) {
		if l.Speaker == User {
			return true
		}
	}
	return false
}

// Len returns the number of lines in the persona's transcript.
func (s *Store) Len(persona string) int {
	s.io.RLock()
	defer s.io.RUnlock()
	s.hydrate(persona)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines[persona])
}

// ClearAll empties every transcript, in memory and on the backend, as one
// step: no reader observes a partially cleared store. A backend failure is
// returned after memory has been cleared.
func (s *Store) ClearAll() error {
	s.io.Lock()
	defer s.io.Unlock()

	s.mu.Lock()
	s.gen++
	s.lines = make(map[string][]Line)
	s.loaded = make(map[string]bool)
	s.mu.Unlock()

	if s.backend == nil {
		return nil
	}
	if err := s.backend.DeleteTranscripts(); err != nil {
		return &IOError{Op: "delete", Persona: "*", Err: err}
	}
	return nil
}

// Personas returns the personas with at least one line, in no particular
// order.
func (s *Store) Personas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.lines))
	for p, l := range s.lines {
		if len(l) > 0 {
			out = append(out, p)
		}
	}
	return out
}
