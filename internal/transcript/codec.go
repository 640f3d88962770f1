package transcript

import (
	"strings"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	User      Speaker = "user"
	Assistant Speaker = "assistant"
)

// Line is one utterance in a conversation. Text may span multiple lines.
type Line struct {
	Speaker Speaker
	Text    string
}

// Labels are the speaker labels written for a persona. A persona may use
// display names (e.g. "[You]" and the character's name) instead of the
// canonical "user" and "assistant".
type Labels struct {
	User      string `yaml:"user"`
	Assistant string `yaml:"assistant"`
}

// DefaultLabels are the canonical labels.
var DefaultLabels = Labels{User: string(User), Assistant: string(Assistant)}

func (l Labels) orDefault() Labels {
	if l.User == "" {
		l.User = DefaultLabels.User
	}
	if l.Assistant == "" {
		l.Assistant = DefaultLabels.Assistant
	}
	return l
}

// label returns the persisted label for s.
func (l Labels) label(s Speaker) string {
	l = l.orDefault()
	if s == User {
		return l.User
	}
	return l.Assistant
}

// FormatLine renders a line as "<label>: <text>" on one physical line.
// Newlines in the text are written as `\n` and backslashes as `\\`.
func FormatLine(line Line, labels Labels) string {
	return labels.label(line.Speaker) + ": " + escaper.Replace(line.Text)
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// Parse decodes a persisted transcript.
//
// Each physical line written by FormatLine is one utterance. Files written
// before newlines were escaped may hold raw multi-line text, so a physical
// line that does not look like "<label>: <text>" continues the previous
// utterance. Labels other than the persona's own are accepted too,
// classified as the user if they are "user" or mention "You", otherwise as
// the assistant. Blank lines are skipped.
func Parse(data []byte, labels Labels) []Line {
	labels = labels.orDefault()
	var lines []Line
	for _, raw := range strings.Split(string(data), "\n") {
		raw = strings.TrimRight(raw, "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		speaker, text, ok := splitLabel(raw, labels)
		if !ok {
			if n := len(lines); n > 0 {
				lines[n-1].Text += "\n" + raw
				continue
			}
			// orphan continuation
			speaker, text = Assistant, raw
		}
		lines = append(lines, Line{Speaker: speaker, Text: unescaper.Replace(text)})
	}
	return lines
}

func splitLabel(raw string, labels Labels) (Speaker, string, bool) {
	for _, c := range []struct {
		label   string
		speaker Speaker
	}{
		{labels.User, User},
		{labels.Assistant, Assistant},
		{DefaultLabels.User, User},
		{DefaultLabels.Assistant, Assistant},
	} {
		if rest, ok := strings.CutPrefix(raw, c.label+": "); ok {
			return c.speaker, rest, true
		}
	}

	label, rest, ok := strings.Cut(raw, ": ")
	if !ok || !looksLikeLabel(label) {
		return "", "", false
	}
	if strings.EqualFold(label, string(User)) || strings.Contains(label, "You") {
		return User, rest, true
	}
	return Assistant, rest, true
}

// looksLikeLabel reports whether s could be a speaker label: short, at most
// four words, no surrounding whitespace.
func looksLikeLabel(label string) bool {
	if label == "" || len(label) > 40 || strings.TrimSpace(label) != label {
		return false
	}
	return strings.Count(label, " ") <= 3
}
