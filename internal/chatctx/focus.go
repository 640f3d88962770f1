package chatctx

import (
	"strings"

	"github.com/rivo/uniseg"
)

// FocusExcerptLimit is the number of user-perceived characters of a viewed
// item included in a focus note.
const FocusExcerptLimit = 200

// FocusNote describes what the player is looking at while talking. An empty
// title yields a note saying nothing is being viewed.
func FocusNote(title, body string) string {
	if title == "" {
		return "[CONTEXT: User is not currently viewing any specific file]"
	}
	return "[CONTEXT: User is currently viewing file '" + title + "' which contains: " +
		Truncate(body, FocusExcerptLimit) + "]"
}

// WithFocus appends FocusNote(title, body) to content.
func WithFocus(content, title, body string) string {
	return content + "\n\n" + FocusNote(title, body)
}

// Truncate cuts s to at most limit grapheme clusters, adding "..." if
// anything was removed.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; g.Next(); n++ {
		if n == limit {
			return b.String() + "..."
		}
		b.WriteString(g.Str())
	}
	return s
}
