package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultBufferSize is the number of entries a RingHandler keeps.
const DefaultBufferSize = 1000

// Entry is one captured log record.
type Entry struct {
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs"`
}

// ring is the storage shared by a RingHandler and its derived handlers.
type ring struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
}

// RingHandler is a slog.Handler that keeps the most recent records in
// memory, so the terminal UI can show them without touching the log file.
type RingHandler struct {
	ring   *ring
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewRingHandler keeps up to size entries at or above level.
func NewRingHandler(size int, level slog.Leveler) *RingHandler {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if level == nil {
		level = slog.LevelInfo
	}
	return &RingHandler{ring: &ring{size: size}, level: level}
}

// Enabled implements slog.Handler.
func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})
	e := Entry{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs}

	h.ring.mu.Lock()
	defer h.ring.mu.Unlock()
	h.ring.entries = append(h.ring.entries, e)
	if over := len(h.ring.entries) - h.ring.size; over > 0 {
		h.ring.entries = slices.Delete(h.ring.entries, 0, over)
	}
	return nil
}

func flatten(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := prefix + a.Key
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = key + "."
		}
		for _, g := range a.Value.Group() {
			flatten(dst, p, g)
		}
		return
	}
	dst[key] = a.Value.String()
}

// WithAttrs implements slog.Handler.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *RingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

// Recent returns up to n of the newest entries, oldest first. n <= 0
// returns everything.
func (h *RingHandler) Recent(n int) []Entry {
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	if n <= 0 || n > len(h.ring.entries) {
		n = len(h.ring.entries)
	}
	return slices.Clone(h.ring.entries[len(h.ring.entries)-n:])
}

// Search returns the entries whose message, attribute keys or values contain
// query, case-insensitively.
func (h *RingHandler) Search(query string) []Entry {
	query = strings.ToLower(query)
	h.ring.mu.RLock()
	defer h.ring.mu.RUnlock()
	var out []Entry
	for _, e := range h.ring.entries {
		if matches(e, query) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e Entry, query string) bool {
	if strings.Contains(strings.ToLower(e.Message), query) {
		return true
	}
	for k, v := range e.Attrs {
		if strings.Contains(strings.ToLower(k), query) || strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return false
}

// Clear drops every entry.
func (h *RingHandler) Clear() {
	h.ring.mu.Lock()
	h.ring.entries = h.ring.entries[:0]
	h.ring.mu.Unlock()
}
