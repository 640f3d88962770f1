// Package scrollbar renders a one-column scroll indicator beside a
// bubbles viewport.
package scrollbar

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Bar draws a thumb over a track. The zero value renders plain characters.
type Bar struct {
	Thumb     lipgloss.Style
	Track     lipgloss.Style
	ThumbChar string
	TrackChar string
}

// New returns a bar using the given styles and the default characters.
func New(thumb, track lipgloss.Style) Bar {
	return Bar{Thumb: thumb, Track: track, ThumbChar: "┃", TrackChar: "│"}
}

// Thumb returns the first row and the height of the thumb when rows of a
// total-line document are visible starting at offset. Content that fits
// gets a full-height thumb.
func Thumb(total, rows, offset int) (top, size int) {
	if rows <= 0 {
		return 0, 0
	}
	if total <= rows {
		return 0, rows
	}
	size = max(rows*rows/total, 1)
	maxOffset := total - rows
	offset = min(max(offset, 0), maxOffset)
	top = offset * (rows - size) / maxOffset
	return top, size
}

// View renders exactly rows lines.
func (b Bar) View(total, rows, offset int) string {
	top, size := Thumb(total, rows, offset)
	thumb, track := b.ThumbChar, b.TrackChar
	if thumb == "" {
		thumb = "┃"
	}
	if track == "" {
		track = "│"
	}
	lines := make([]string, rows)
	for i := range lines {
		if i >= top && i < top+size {
			lines[i] = b.Thumb.Render(thumb)
		} else {
			lines[i] = b.Track.Render(track)
		}
	}
	return strings.Join(lines, "\n")
}

// Scrollable reports whether v holds more lines than it shows.
func Scrollable(v viewport.Model) bool {
	return v.TotalLineCount() > v.Height
}

// ForViewport renders the bar for v's current position.
func (b Bar) ForViewport(v viewport.Model) string {
	return b.View(v.TotalLineCount(), v.Height, v.YOffset)
}
